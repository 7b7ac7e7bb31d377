package register

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

type registrationRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registrationResponse struct {
	Error string `json:"error,omitempty"`
}

// Handler returns the HTTP handler for the registration endpoint.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.handleRegister)
	return mux
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var request registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeResponse(w, http.StatusBadRequest, "malformed request body")
		return
	}

	switch err := s.Register(request.Username, request.Password); {
	case err == nil:
		writeResponse(w, http.StatusCreated, "")
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidPassword):
		writeResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserExists):
		writeResponse(w, http.StatusConflict, err.Error())
	default:
		s.Logger.Errorf("registration failed for %s: %v", request.Username, err)
		writeResponse(w, http.StatusInternalServerError, "internal error")
	}
}

func writeResponse(w http.ResponseWriter, status int, errMessage string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(registrationResponse{Error: errMessage})
}

// Start serves the registration endpoint on addr until the context is
// cancelled, adding itself to the WaitGroup like the other servers.
func (s *Service) Start(ctx context.Context, addr string, wg *sync.WaitGroup) {
	server := &http.Server{Addr: addr, Handler: s.Handler()}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Logger.Printf("registration endpoint listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Errorf("registration endpoint exited: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
