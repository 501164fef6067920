package server

import (
	"context"
	"io"
	"log"

	"github.com/jingkaihe/skillserver/pkg/logger"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ServeStdio serves MCP over the given reader and writer until ctx is done
// or the input is closed
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	errorWriter := logger.G(ctx).WriterLevel(logrus.ErrorLevel)
	defer errorWriter.Close()

	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(errorWriter, "", 0))

	logger.G(ctx).Info("serving MCP on stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "stdio server failed")
	}
	return nil
}
