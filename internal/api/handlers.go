package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/forgemedia/portal/internal/catalog"
	"github.com/forgemedia/portal/internal/coordinator"
	"github.com/forgemedia/portal/internal/metrics"
	"github.com/forgemedia/portal/internal/portal"
)

// maxUploadBytes caps in-memory multipart parsing; larger bodies spill to disk.
const maxUploadBytes = 64 << 20

func (s *Server) listServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": catalog.Services()})
}

func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	id := portal.ServiceType(chi.URLParam(r, "service_id"))
	svc, ok := catalog.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

type uploadResponse struct {
	OrderID     string             `json:"order_id"`
	ServiceType portal.ServiceType `json:"service_type"`
	FileName    string             `json:"file_name"`
	FileSize    int64              `json:"file_size"`
	Status      portal.Status      `json:"status"`
	Message     string             `json:"message"`
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	serviceType := portal.ServiceType(r.FormValue("service_type"))
	if serviceType == "" {
		writeError(w, http.StatusBadRequest, "service_type is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Warn("close upload file", zap.Error(err))
		}
	}()

	order, err := s.co.Submit(r.Context(), coordinator.SubmitRequest{
		ServiceType:  serviceType,
		ClientID:     r.FormValue("client_id"),
		Filename:     header.Filename,
		Instructions: r.FormValue("instructions"),
		Content:      file,
		Size:         header.Size,
	})
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	metrics.ObserveUpload(string(order.ServiceType), order.FileSize)
	writeJSON(w, http.StatusCreated, uploadResponse{
		OrderID:     order.ID,
		ServiceType: order.ServiceType,
		FileName:    order.OriginalFilename,
		FileSize:    order.FileSize,
		Status:      order.Status,
		Message:     "order received and queued for processing",
	})
}

func (s *Server) listClientOrders(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = coordinator.DefaultClientID
	}
	filter := portal.ListFilter{ClientID: clientID}
	if status := r.URL.Query().Get("status"); status != "" {
		st := portal.Status(status)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = st
	}
	orders, err := s.co.List(r.Context(), filter)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type downloadResponse struct {
	OrderID          string `json:"order_id"`
	DownloadURL      string `json:"download_url"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	url, err := s.co.DownloadLink(r.Context(), orderID)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{
		OrderID:          orderID,
		DownloadURL:      url,
		ExpiresInSeconds: int(s.cfg.DownloadTTL().Seconds()),
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.co.Get(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) adminListOrders(w http.ResponseWriter, r *http.Request) {
	filter := portal.ListFilter{ClientID: r.URL.Query().Get("client_id")}
	if status := r.URL.Query().Get("status"); status != "" {
		st := portal.Status(status)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = st
	}
	orders, err := s.co.List(r.Context(), filter)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type assignRequest struct {
	Worker string `json:"worker"`
}

func (s *Server) assignOrder(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Worker == "" {
		writeError(w, http.StatusBadRequest, "worker is required")
		return
	}
	order, err := s.co.Assign(r.Context(), chi.URLParam(r, "order_id"), req.Worker)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) startOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.co.StartTranscription(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) checkOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.co.Reconcile(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) completeOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.co.Finalize(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.co.Cancel(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type callbackRequest struct {
	Status     portal.ProviderStatus `json:"status"`
	Transcript string                `json:"transcript"`
}

// transcriptionCallback ingests provider completions. The endpoint always
// answers 200 so the provider stops retrying; stale or malformed callbacks
// are logged and discarded.
func (s *Server) transcriptionCallback(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Provider.CallbackToken != "" &&
		r.URL.Query().Get("token") != s.cfg.Provider.CallbackToken {
		writeError(w, http.StatusForbidden, "unauthorized")
		return
	}
	orderID := chi.URLParam(r, "order_id")
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("malformed transcription callback",
			zap.String("order_id", orderID), zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"result": "discarded"})
		return
	}
	if _, err := s.co.IngestCallback(r.Context(), orderID, req.Status, req.Transcript); err != nil {
		s.logger.Warn("transcription callback not applied",
			zap.String("order_id", orderID), zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"result": "discarded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "accepted"})
}

// writeMappedError translates coordinator sentinel errors to HTTP statuses.
func (s *Server) writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portal.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, portal.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, portal.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, portal.ErrStorageFailure), errors.Is(err, portal.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
