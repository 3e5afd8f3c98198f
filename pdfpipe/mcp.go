package pdfpipe

import (
	"context"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the conversion tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerConvertTool(srv)
	p.registerSplitTool(srv)
}

type convertInput struct {
	Path       string `json:"path" jsonschema:"File path of the PDF to convert"`
	NoChunking bool   `json:"no_chunking,omitempty" jsonschema:"Disable size-aware chunked processing (enabled when omitted)"`
}

type convertOutput struct {
	Markdown string             `json:"markdown"`
	Pages    int                `json:"pages"`
	Chunks   int                `json:"chunks"`
	OCRPages int                `json:"ocr_pages"`
	Images   []ImageFile        `json:"images,omitempty"`
	Quality  *ExtractionQuality `json:"quality,omitempty"`
}

func (p *Pipeline) registerConvertTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdpress_convert",
		Description: "Convert a PDF file to Markdown with extracted images and OCR fallback for scanned pages.",
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, req *mcp.CallToolRequest, in convertInput) (*mcp.CallToolResult, convertOutput, error) {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, convertOutput{}, err
		}
		outDir, err := os.MkdirTemp("", "mdpress-mcp-*")
		if err != nil {
			return nil, convertOutput{}, err
		}
		defer os.RemoveAll(outDir)

		res, err := p.Process(ctx, data, !in.NoChunking, outDir)
		if err != nil {
			return nil, convertOutput{}, err
		}
		return nil, convertOutput{
			Markdown: res.Markdown,
			Pages:    res.Pages,
			Chunks:   res.Chunks,
			OCRPages: res.OCRPages,
			Images:   res.Images,
			Quality:  res.Quality,
		}, nil
	})
}

type splitInput struct {
	Path       string `json:"path" jsonschema:"File path of the PDF to inspect"`
	NoChunking bool   `json:"no_chunking,omitempty" jsonschema:"Disable size-aware chunked processing (enabled when omitted)"`
}

type splitOutput struct {
	Pages  int         `json:"pages"`
	Ranges []PageRange `json:"ranges"`
}

// mdpress_split exposes the splitter alone, for inspecting how a document
// would be partitioned without running extraction.
func (p *Pipeline) registerSplitTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdpress_split",
		Description: "Compute the size-aware chunk ranges for a PDF without extracting it.",
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, req *mcp.CallToolRequest, in splitInput) (*mcp.CallToolResult, splitOutput, error) {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, splitOutput{}, err
		}
		doc, err := OpenDocument(data)
		if err != nil {
			return nil, splitOutput{}, err
		}
		return nil, splitOutput{Pages: doc.PageCount(), Ranges: p.SplitRanges(doc, !in.NoChunking)}, nil
	})
}
