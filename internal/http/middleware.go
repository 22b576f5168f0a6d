package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quill/app/internal/faults"
)

const rateLimitMessage = "Too many requests. Please wait a moment and try again."

func (s *Server) requestIDMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := uuid.NewString()
		goCtx := context.WithValue(ctx.Context(), requestIDContextKey, reqID)
		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader("X-Request-ID", reqID)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(ctx)
	}
}

func (s *Server) rateLimitMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.rateLimiter == nil {
			next(ctx)
			return
		}

		req, _ := humago.Unwrap(ctx)
		if req == nil {
			next(ctx)
			return
		}

		ip := clientIPFromRequest(req)
		if s.rateLimiter.Allow(ip) {
			next(ctx)
			return
		}

		fields := logrus.Fields{
			"ip":   ip,
			"path": req.URL.Path,
		}
		if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
			fields["request_id"] = requestID
		}
		record := s.faults.Handle(eris.New("rate limit exceeded"), faults.SeverityLow, fields, rateLimitMessage)

		ctx.SetHeader("Retry-After", "1")
		writeEnvelope(ctx, stdhttp.StatusTooManyRequests, envelope{
			Success:    false,
			Error:      &record,
			StatusCode: stdhttp.StatusTooManyRequests,
		})
	}
}

// requireAuth guards a route with bearer-token authentication. The user
// identifier is placed on the request context for handlers.
func (s *Server) requireAuth() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := strings.TrimSpace(ctx.Header("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.rejectUnauthenticated(ctx, eris.New("missing bearer token"))
			return
		}

		userID, err := s.tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			s.rejectUnauthenticated(ctx, err)
			return
		}

		goCtx := context.WithValue(ctx.Context(), userIDContextKey, userID)
		next(huma.WithContext(ctx, goCtx))
	}
}

func (s *Server) rejectUnauthenticated(ctx huma.Context, cause error) {
	err := faults.Wrap(faults.KindAuthentication, cause, "authenticating request").
		WithUserMessage("Authentication failed. Please check your credentials.")

	record := s.faults.Handle(err, faults.SeverityMedium, logrus.Fields{
		"request_id": RequestIDFromContext(ctx.Context()),
		"path":       ctx.URL().Path,
	}, faults.UserMessage(err))

	writeEnvelope(ctx, stdhttp.StatusUnauthorized, envelope{
		Success:    false,
		Error:      &record,
		StatusCode: stdhttp.StatusUnauthorized,
	})
}

func writeEnvelope(ctx huma.Context, status int, body envelope) {
	payload, err := json.Marshal(body)
	if err != nil {
		ctx.SetStatus(stdhttp.StatusInternalServerError)
		return
	}

	ctx.SetHeader("Content-Type", jsonContentType)
	ctx.SetStatus(status)
	_, _ = ctx.BodyWriter().Write(payload)
}

func (s *Server) loggingMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		fields := logrus.Fields{
			"method":      ctx.Method(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}

		if op := ctx.Operation(); op != nil {
			fields["route"] = op.Path
		}

		if req, _ := humago.Unwrap(ctx); req != nil {
			fields["path"] = req.URL.Path
			fields["remote_addr"] = req.RemoteAddr
		}

		if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
			fields["request_id"] = requestID
		}

		entry := s.logger.WithFields(fields)
		if status >= 500 {
			entry.Error("request failed")
		} else {
			entry.Info("request completed")
		}
	}
}

func (s *Server) recoveryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			if rec := recover(); rec != nil {
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("panic: %v", v)
				}

				record := s.faults.Handle(err, faults.SeverityCritical, logrus.Fields{
					"request_id": RequestIDFromContext(ctx.Context()),
					"path":       ctx.URL().Path,
				}, "")

				if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
					hub.RecoverWithContext(ctx.Context(), rec)
					hub.Flush(2 * time.Second)
				}

				writeEnvelope(ctx, stdhttp.StatusInternalServerError, envelope{
					Success:    false,
					Error:      &record,
					StatusCode: stdhttp.StatusInternalServerError,
				})
			}
		}()

		next(ctx)
	}
}

func (s *Server) sentryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			scope.SetTag("http.route", op.Path)
		}

		goCtx := sentry.SetHubOnContext(ctx.Context(), hub)
		ctx = huma.WithContext(ctx, goCtx)

		defer hub.Flush(2 * time.Second)

		next(ctx)
	}
}

func clientIPFromRequest(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
