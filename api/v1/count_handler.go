package v1

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/karloscodes/cartridge"

	"github.com/philippdubach/cloudcounter/internal/hits"
	"github.com/philippdubach/cloudcounter/internal/pkg/async"
)

// gifPixel is a 1x1 transparent GIF. Every count request gets exactly this
// body, so the response never reveals whether the hit was recorded.
var gifPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Handler bundles the public API endpoints with their dependencies.
type Handler struct {
	processor *hits.Processor
}

func NewHandler(processor *hits.Processor) *Handler {
	return &Handler{processor: processor}
}

// Count handles GET and POST beacon requests. Validation and parsing are
// synchronous; the classify/resolve/aggregate pipeline runs detached so the
// response never waits on storage and client disconnects cannot cancel it.
func (h *Handler) Count(ctx *cartridge.Context) error {
	input := &hits.Input{
		Path:           param(ctx, "p"),
		Title:          param(ctx, "t"),
		Referrer:       param(ctx, "r"),
		Event:          hits.IsTruthy(param(ctx, "e")),
		Width:          atoiOrZero(param(ctx, "s")),
		ClientBotScore: atoiOrZero(param(ctx, "b")),
		UserAgent:      userAgent(ctx),
		IP:             getClientIP(ctx.Ctx),
		AcceptLanguage: ctx.Get("Accept-Language"),
		Location:       ctx.Get("CF-IPCountry"),
		EdgeBotScore:   atoiOrZero(ctx.Get("X-Bot-Score")),
		Timestamp:      time.Now().UTC(),
	}

	async.Go(ctx.Logger, "process_hit", func(bg context.Context) {
		if err := h.processor.Process(bg, input); err != nil {
			ctx.Logger.Error("Failed to process hit",
				slog.String("path", input.Path),
				slog.Any("error", err))
		}
	})

	ctx.Set("Content-Type", "image/gif")
	ctx.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	return ctx.Status(200).Send(gifPixel)
}

// param reads a beacon parameter from the form body on POST, falling back to
// the query string.
func param(ctx *cartridge.Context, key string) string {
	if ctx.Method() == "POST" {
		if value := ctx.Ctx.FormValue(key); value != "" {
			return value
		}
	}
	return ctx.Query(key)
}

func userAgent(ctx *cartridge.Context) string {
	if forwarded := ctx.Get("X-Forwarded-User-Agent"); forwarded != "" {
		return forwarded
	}
	return ctx.Get("User-Agent")
}

func atoiOrZero(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
