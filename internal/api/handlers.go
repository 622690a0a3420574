package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"collarwatch/internal/auth"
	"collarwatch/internal/model"
)

// ---- auth ----

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Username == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "email, username and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	user := &model.User{
		Email:          req.Email,
		Username:       req.Username,
		HashedPassword: hash,
		FullName:       req.FullName,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		// Unique violations on email/username surface as a conflict, not a 500.
		writeError(w, http.StatusConflict, "email or username already registered")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.store.UserByUsername(r.Context(), req.Username)
	if err != nil || !user.IsActive || !auth.CheckPassword(user.HashedPassword, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expires, err := s.tokens.Issue(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expires,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	user, err := s.store.UserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ---- dogs ----

func (s *Server) handleCreateDog(w http.ResponseWriter, r *http.Request) {
	var dog model.Dog
	if err := json.NewDecoder(r.Body).Decode(&dog); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if dog.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if dog.Sex != "" && !dog.Sex.Valid() {
		writeError(w, http.StatusBadRequest, "unknown sex value")
		return
	}
	if dog.Sterilization != "" && !dog.Sterilization.Valid() {
		writeError(w, http.StatusBadRequest, "unknown sterilization_status value")
		return
	}
	if claims, ok := auth.FromContext(r.Context()); ok && dog.OwnerID == "" {
		dog.OwnerID = claims.UserID
	}
	if err := s.store.CreateDog(r.Context(), &dog); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &dog)
}

func (s *Server) handleListDogs(w http.ResponseWriter, r *http.Request) {
	skip, limit := paging(r)
	dogs, err := s.store.Dogs(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if dogs == nil {
		dogs = []*model.Dog{}
	}
	writeJSON(w, http.StatusOK, dogs)
}

func (s *Server) handleGetDog(w http.ResponseWriter, r *http.Request) {
	dog, err := s.store.DogByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dog)
}

func (s *Server) handleUpdateDog(w http.ResponseWriter, r *http.Request) {
	var dog model.Dog
	if err := json.NewDecoder(r.Body).Decode(&dog); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := s.store.UpdateDog(r.Context(), r.PathValue("id"), &dog)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteDog(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeactivateDog(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// ---- collars ----

func (s *Server) handleCreateCollar(w http.ResponseWriter, r *http.Request) {
	var collar model.Collar
	if err := json.NewDecoder(r.Body).Decode(&collar); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if collar.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}
	if collar.DogID != "" {
		if _, err := s.store.DogByID(r.Context(), collar.DogID); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if err := s.store.CreateCollar(r.Context(), &collar); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &collar)
}

func (s *Server) handleListCollars(w http.ResponseWriter, r *http.Request) {
	skip, limit := paging(r)
	collars, err := s.store.Collars(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if collars == nil {
		collars = []*model.Collar{}
	}
	writeJSON(w, http.StatusOK, collars)
}

func (s *Server) handleGetCollar(w http.ResponseWriter, r *http.Request) {
	collar, err := s.store.CollarByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collar)
}

// ---- telemetry ----

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var reading model.SensorReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := reading.Validate(); err != nil {
		writeStoreError(w, err)
		return
	}

	result, err := s.pipeline.ScoreAndRecord(r.Context(), &reading)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// Liveness is best effort; a failed touch never fails the ingest.
	_ = s.store.TouchCollar(r.Context(), reading.CollarID, nil,
		reading.GPSLatitude, reading.GPSLongitude, reading.GPSAccuracy)

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	dogID := r.PathValue("dogID")
	if _, err := s.store.DogByID(r.Context(), dogID); err != nil {
		writeStoreError(w, err)
		return
	}

	var start, end *time.Time
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC 3339")
			return
		}
		start = &t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC 3339")
			return
		}
		end = &t
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	readings, err := s.store.ReadingsByDog(r.Context(), dogID, start, end, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if readings == nil {
		readings = []*model.SensorReading{}
	}
	writeJSON(w, http.StatusOK, readings)
}

// handleLatestReading serves the cached latest reading and falls back to the
// database when the cache is cold or disabled.
func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	dogID := r.PathValue("dogID")

	if s.latest != nil {
		payload, err := s.latest.GetLatest(r.Context(), dogID)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(payload)
			return
		}
		if !errors.Is(err, model.ErrNotFound) {
			// Redis trouble degrades to the database, it does not fail the read.
			log.Printf("api: latest-reading cache for dog %s: %v", dogID, err)
		}
	}

	reading, err := s.store.LatestReading(r.Context(), dogID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// ---- interventions ----

func (s *Server) handleListInterventions(w http.ResponseWriter, r *http.Request) {
	skip, limit := paging(r)
	interventions, err := s.store.Interventions(r.Context(), r.URL.Query().Get("dog_id"), skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if interventions == nil {
		interventions = []*model.Intervention{}
	}
	writeJSON(w, http.StatusOK, interventions)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	iv, err := s.store.AcknowledgeIntervention(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// ---- analytics ----

func (s *Server) handleAggressionTrends(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	points, err := s.store.AggressionTrends(r.Context(), r.PathValue("dogID"), days)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleHealthMetrics(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	points, err := s.store.HealthMetrics(r.Context(), r.PathValue("dogID"), days)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Dashboard(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func paging(r *http.Request) (skip, limit int) {
	skip, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}
