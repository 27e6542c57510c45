package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/ironsheep/image-calc-server/internal/analysis"
	"github.com/ironsheep/image-calc-server/internal/apperr"
	"github.com/ironsheep/image-calc-server/internal/logging"
	"go.uber.org/zap"
)

// Response texts.
const (
	MsgSuccess       = "Success"
	MsgRunning       = "Server is running"
	MsgRateLimited   = "Rate limit exceeded. Please try again later."
	MsgInvalidBody   = "Invalid request body"
	MsgBodyTooLarge  = "Request body too large"
	MsgImageRequired = "Field required: image"

	StatusSuccess = "success"
	StatusError   = "error"
)

// ImageRequest is the body of a calculate request.
type ImageRequest struct {
	// Image is a data-URI: data:image/<format>;base64,<payload>.
	Image *string `json:"image"`

	// Vars maps variable names to strings or numbers.
	Vars map[string]any `json:"dict_of_vars"`
}

// Envelope is the body of every calculate response.
//
// Error responses carry the same text in Message and Detail so that clients
// written against either field keep working.
type Envelope struct {
	Message string           `json:"message"`
	Data    []map[string]any `json:"data"`
	Status  string           `json:"status"`
	Detail  *string          `json:"detail,omitempty"`
}

// handleRoot is the rate-limited liveness probe.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r, s.cfg.TrustProxyHeaders)) {
		retry := int(math.Ceil(s.cfg.RateLimitWindow.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		s.writeError(w, r, apperr.RateLimit(MsgRateLimited))
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"message": MsgRunning})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCalculate runs one image through decode, analysis and normalization.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), s.log)
	log.Info("Received request")

	req, err := s.readImageRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	decoded, err := s.decoder.DecodeDataURI(*req.Image)
	if err != nil {
		log.Error("Image decoding failed", zap.Error(err))
		s.writeError(w, r, err)
		return
	}
	log.Debug("Image decoded",
		zap.String("format", decoded.Format),
		zap.Int("width", decoded.Width()),
		zap.Int("height", decoded.Height()))

	items, err := s.calc.Analyze(r.Context(), analysis.Request{Image: decoded, Vars: req.Vars})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := analysis.Normalize(items)
	log.Info("Processed response", zap.Int("items", len(data)))

	s.writeJSON(w, r, http.StatusOK, Envelope{
		Message: MsgSuccess,
		Data:    data,
		Status:  StatusSuccess,
	})
}

// readImageRequest decodes the body, capped at MaxBodyBytes.
func (s *Server) readImageRequest(w http.ResponseWriter, r *http.Request) (*ImageRequest, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer body.Close()

	var req ImageRequest
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.MalformedRequest(MsgBodyTooLarge, err)
		}
		return nil, apperr.MalformedRequest(MsgInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.MalformedRequest(MsgBodyTooLarge, err)
		}
		return nil, apperr.MalformedRequest(MsgInvalidBody, fmt.Errorf("unexpected data after request object: %v", err))
	}

	if req.Image == nil {
		return nil, apperr.MalformedRequest(MsgImageRequired, nil)
	}
	if req.Vars == nil {
		req.Vars = map[string]any{}
	}
	return &req, nil
}

// writeError renders err as an error envelope. Unclassified errors are logged
// here since nothing upstream has seen them.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	message := apperr.PublicMessage(err)

	log := logging.FromContext(r.Context(), s.log)
	switch kind {
	case apperr.KindInternal:
		log.Error("Unexpected error", zap.Error(err))
	case apperr.KindRateLimit:
		log.Warn("Rate limit exceeded")
	case apperr.KindMalformedRequest:
		log.Warn("Malformed request", zap.Error(err))
	}

	s.writeJSON(w, r, kind.HTTPStatus(), Envelope{
		Message: message,
		Data:    []map[string]any{},
		Status:  StatusError,
		Detail:  &message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logging.FromContext(r.Context(), s.log).Warn("Failed to write response", zap.Error(err))
	}
}
