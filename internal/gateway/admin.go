package gateway

import (
	"context"
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/BenderTales/tales-chat-api/internal/obslog"
)

type channelInfo struct {
	ID             string `json:"id"`
	SelectorPrefix string `json:"selector_prefix,omitempty"`
	Format         string `json:"format"`
}

// AdminHandler serves the small status/ops API: health, the channel
// registry, and config reload.
func (s *Server) AdminHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/healthz":
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("ok")
		case "/channels":
			var out []channelInfo
			for _, ch := range s.manager.Channels() {
				out = append(out, channelInfo{
					ID:             ch.ID,
					SelectorPrefix: ch.SelectorPrefix,
					Format:         ch.Formatter.Template(),
				})
			}
			body, err := json.Marshal(out)
			if err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				return
			}
			ctx.SetContentType("application/json")
			ctx.SetBody(body)
		case "/reload":
			if !ctx.IsPost() {
				ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
				return
			}
			if err := s.manager.Reload(ctx); err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString(err.Error())
				return
			}
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("reloaded")
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
}

// RunAdmin serves the admin API until ctx is canceled.
func (s *Server) RunAdmin(ctx context.Context, addr string) error {
	srv := &fasthttp.Server{Handler: s.AdminHandler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(addr)
	}()
	obslog.L().Info("admin_listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown()
	}
}
