package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/servemd/cache"
	"github.com/lexandro/servemd/docs"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LLMsArgs defines the input parameters for the docs_llms tool.
type LLMsArgs struct {
	Full bool `json:"full,omitempty" jsonschema:"If true return llms-full.txt with the content of every linked page inlined"`
}

// DigestSource builds or returns the cached digests.
type DigestSource interface {
	Digest(ctx context.Context, kind docs.DigestKind, baseURL string) (*cache.Entry, error)
}

// LLMsHandler holds the dependencies for the llms tool.
type LLMsHandler struct {
	Docs    DigestSource
	BaseURL string
	Logger  *slog.Logger
}

// Handle processes a docs_llms request.
func (h *LLMsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args LLMsArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	kind := docs.DigestSummary
	if args.Full {
		kind = docs.DigestFull
	}

	entry, err := h.Docs.Digest(ctx, kind, h.BaseURL)
	if err != nil {
		h.Logger.Error("docs_llms failed", "kind", kind, "error", err)
		return errorResult(fmt.Sprintf("Digest error: %v", err)), nil, nil
	}

	h.Logger.Info("docs_llms", "kind", kind, "bytes", len(entry.Payload), "elapsed", time.Since(start))
	return textResult(entry.Payload), nil, nil
}
