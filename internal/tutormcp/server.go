// Package tutormcp exposes the tutoring backend as MCP tools.
package tutormcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"study-tutor/internal/backend"
	"study-tutor/internal/logger"
	"study-tutor/internal/session"
)

type AskParams struct {
	Question string `json:"question" mcp:"the question to answer from the uploaded material"`
}

type UploadLinkParams struct {
	URL string `json:"url" mcp:"a web page or video link to ingest"`
}

type NoParams struct{}

// Server holds the tool handlers.
type Server struct {
	gw  session.Gateway
	log *logger.Logger
}

func New(gw session.Gateway, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{gw: gw, log: log}
}

// Register adds every tool to server.
func (s *Server) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Answers a question grounded in the uploaded study material; sources list the documents used, or 'internet' when the answer is not from the material",
	}, s.Ask)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_quiz",
		Description: "Generates a quiz from the uploaded material, including the correct answers",
	}, s.GenerateQuiz)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize",
		Description: "Returns per-chapter summaries with key points",
	}, s.Summarize)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "flashcards",
		Description: "Returns front/back flashcards for the uploaded material",
	}, s.Flashcards)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_files",
		Description: "Lists the files currently ingested by the tutor",
	}, s.ListFiles)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_link",
		Description: "Ingests a web link into the study material",
	}, s.UploadLink)
}

func (s *Server) Ask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[AskParams]) (*mcp.CallToolResultFor[any], error) {
	q := params.Arguments.Question
	if strings.TrimSpace(q) == "" {
		return errorResult("question is required"), nil
	}
	resp, err := s.gw.Ask(ctx, q)
	if err != nil {
		return s.failure("ask", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) GenerateQuiz(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	resp, err := s.gw.Quiz(ctx)
	if err != nil {
		return s.failure("generate_quiz", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) Summarize(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	resp, err := s.gw.Summary(ctx)
	if err != nil {
		return s.failure("summarize", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) Flashcards(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	resp, err := s.gw.Flashcards(ctx)
	if err != nil {
		return s.failure("flashcards", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) ListFiles(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	resp, err := s.gw.ListFiles(ctx)
	if err != nil {
		return s.failure("list_files", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) UploadLink(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[UploadLinkParams]) (*mcp.CallToolResultFor[any], error) {
	link := params.Arguments.URL
	if strings.TrimSpace(link) == "" {
		return errorResult("url is required"), nil
	}
	if err := s.gw.Upload(ctx, backend.UploadRequest{Link: link}); err != nil {
		return s.failure("upload_link", err), nil
	}
	return textResult("Link ingested: " + link), nil
}

// failure reports a backend error as a tool error. Status and body stay in the log.
func (s *Server) failure(tool string, err error) *mcp.CallToolResultFor[any] {
	s.log.Warn("tool failed", "tool", tool, "error", err)
	if backend.IsNetworkError(err) {
		return errorResult(tool + " failed: the tutoring backend is unreachable")
	}
	return errorResult(tool + " failed: the tutoring backend returned an error")
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
