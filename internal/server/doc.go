// Package server implements the HTTP front end of the image calculator.
//
// # Endpoints
//
//	POST <prefix>          ImageRequest -> Envelope (prefix defaults to /calculate)
//	GET  <prefix>/health   {"status":"ok"}
//	GET  /                 {"message":"Server is running"}, rate limited per client
//
// A calculate request moves through decode, analysis and normalization. Each
// stage returns an *apperr.Error on failure and writeError maps its Kind to a
// status code:
//
//   - 400: the image or data-URI is invalid
//   - 422: the body is not a JSON ImageRequest, lacks "image", or is too large
//   - 429: the client exceeded its quota on the root endpoint
//   - 500: the analysis failed, or anything unclassified
//   - 504: the analysis timed out
//
// # Envelope
//
// Successful calculations return:
//
//	{"message": "Success", "data": [...], "status": "success"}
//
// Errors use the same shape with status "error", an empty data list and a
// detail field repeating the message:
//
//	{"message": "Invalid image data", "data": [], "status": "error", "detail": "Invalid image data"}
//
// Only caller-safe messages are returned. Causes, stack traces and collaborator
// internals go to the log.
//
// # Middleware
//
// Every request gets an X-Request-ID (the inbound one when present) and a
// logger carrying it. Requests are access-logged, panics are recovered into a
// 500 envelope, and CORS allows any origin with credentials.
//
// # Usage
//
//	srv, err := server.New(server.Options{
//	    Config:     cfg,
//	    Logger:     logger,
//	    Calculator: analysis.NewAdapter(analyzer, cfg.AnalysisTimeout, logger),
//	    Limiter:    ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow),
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server
