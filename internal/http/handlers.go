package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"carteira/internal/core"
	"carteira/internal/ledger"
	"carteira/internal/log"
	"carteira/internal/records"
	"carteira/internal/session"
)

const ownerHeader = "X-Owner-ID"

type (
	loginRequest struct {
		OwnerID string `json:"ownerId"`
	}

	summaryResponse struct {
		Ready             bool   `json:"ready"`
		WeekBalance       string `json:"weekBalance,omitempty"`
		MonthBalance      string `json:"monthBalance,omitempty"`
		WalletTotal       string `json:"walletTotal,omitempty"`
		MonthIncomeCount  int    `json:"monthIncomeCount,omitempty"`
		MonthExpenseCount int    `json:"monthExpenseCount,omitempty"`
		Projected7Days    string `json:"projected7Days,omitempty"`
		MissingToGreen    string `json:"missingToGreen,omitempty"`
		ComputedAt        string `json:"computedAt,omitempty"`
	}

	recordPayload struct {
		ID         string `json:"id"`
		Kind       string `json:"kind"`
		Name       string `json:"name"`
		Amount     string `json:"amount"`
		Date       string `json:"date"`
		Notes      string `json:"notes,omitempty"`
		Recurrence string `json:"recurrence,omitempty"`
	}

	feedResponse struct {
		Entries   []recordPayload `json:"entries"`
		Exhausted bool            `json:"exhausted"`
	}

	createRequest struct {
		Kind       string `json:"kind"`
		Name       string `json:"name"`
		Amount     string `json:"amount"`
		Date       string `json:"date"`
		Notes      string `json:"notes"`
		Recurrence string `json:"recurrence"`
	}

	updateRequest struct {
		Name   *string `json:"name"`
		Amount *string `json:"amount"`
		Notes  *string `json:"notes"`
	}
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ownerId is required"})
		return
	}

	if _, err := s.manager.Login(r.Context(), req.OwnerID); err != nil {
		writeError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "owner logged in",
		log.FieldOperation, log.OpLogin, log.FieldOwnerID, req.OwnerID)
	writeJSON(w, http.StatusOK, map[string]string{"ownerId": req.OwnerID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.manager.Current(); ok {
		s.summary.Delete(sess.OwnerID())
	}
	s.manager.Logout()
	s.logger.InfoContext(r.Context(), "owner logged out", log.FieldOperation, log.OpLogout)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(w, r)
	if !ok {
		return
	}

	if cached, hit := s.summary.Get(sess.OwnerID()); hit {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	agg, ready := sess.Aggregates()
	if !ready {
		writeJSON(w, http.StatusOK, summaryResponse{Ready: false})
		return
	}

	resp := summaryResponse{
		Ready:             true,
		WeekBalance:       agg.WeekBalance.String(),
		MonthBalance:      agg.MonthBalance.String(),
		WalletTotal:       agg.WalletTotal.String(),
		MonthIncomeCount:  agg.MonthIncomeCount,
		MonthExpenseCount: agg.MonthExpenseCount,
		Projected7Days:    agg.Projected7Days.String(),
		MissingToGreen:    agg.MissingToGreen.String(),
		ComputedAt:        agg.ComputedAt.Format(time.RFC3339),
	}
	s.summary.Set(sess.OwnerID(), resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{Entries: toPayloads(sess.Feed())})
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(w, r)
	if !ok {
		return
	}

	entries, err := sess.LoadMore(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "feed page loaded",
		log.FieldOperation, log.OpLoadMore,
		log.FieldOwnerID, sess.OwnerID(),
		log.FieldCount, len(entries))
	writeJSON(w, http.StatusOK, feedResponse{
		Entries:   toPayloads(entries),
		Exhausted: sess.Exhausted(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, &core.ValidationError{Field: "amount", Reason: "must be a decimal number"})
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(w, &core.ValidationError{Field: "date", Reason: "must be an RFC 3339 timestamp"})
		return
	}

	rec, err := sess.Editor().Create(r.Context(), ledgerCreateInput(req, amount, date))
	if err != nil {
		writeError(w, err)
		return
	}

	s.summary.Delete(sess.OwnerID())
	s.logger.InfoContext(r.Context(), "record created",
		log.FieldOperation, log.OpCreate,
		log.FieldOwnerID, sess.OwnerID(),
		log.FieldKind, string(rec.Kind),
		log.FieldRecordID, rec.ID)
	writeJSON(w, http.StatusCreated, toPayload(rec))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(w, r)
	if !ok {
		return
	}
	kind := core.Kind(r.PathValue("kind"))
	id := r.PathValue("id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	patch := records.FieldPatch{Name: req.Name, Notes: req.Notes}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			writeError(w, &core.ValidationError{Field: "amount", Reason: "must be a decimal number"})
			return
		}
		patch.Amount = &amount
	}

	if err := sess.Editor().Update(r.Context(), kind, id, patch); err != nil {
		writeError(w, err)
		return
	}

	s.summary.Delete(sess.OwnerID())
	s.logger.InfoContext(r.Context(), "record updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldOwnerID, sess.OwnerID(),
		log.FieldKind, string(kind),
		log.FieldRecordID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(w, r)
	if !ok {
		return
	}
	kind := core.Kind(r.PathValue("kind"))
	id := r.PathValue("id")

	if err := sess.Editor().Delete(r.Context(), kind, id); err != nil {
		writeError(w, err)
		return
	}

	s.summary.Delete(sess.OwnerID())
	s.logger.InfoContext(r.Context(), "record deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldOwnerID, sess.OwnerID(),
		log.FieldKind, string(kind),
		log.FieldRecordID, id)
	w.WriteHeader(http.StatusNoContent)
}

// activeSession resolves the current session and enforces that the caller's
// owner header, when present, matches it.
func (s *Server) activeSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.manager.Current()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no active session"})
		return nil, false
	}
	if owner := r.Header.Get(ownerHeader); owner != "" && owner != sess.OwnerID() {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "owner mismatch"})
		return nil, false
	}
	return sess, true
}

func ledgerCreateInput(req createRequest, amount decimal.Decimal, date time.Time) ledger.CreateInput {
	return ledger.CreateInput{
		Kind:       core.Kind(req.Kind),
		Name:       req.Name,
		Amount:     amount,
		Date:       date,
		Notes:      req.Notes,
		Recurrence: core.Recurrence(req.Recurrence),
	}
}

func toPayloads(recs []core.Record) []recordPayload {
	out := make([]recordPayload, len(recs))
	for i, rec := range recs {
		out[i] = toPayload(rec)
	}
	return out
}

func toPayload(rec core.Record) recordPayload {
	return recordPayload{
		ID:         rec.ID,
		Kind:       string(rec.Kind),
		Name:       rec.Name,
		Amount:     rec.Amount.String(),
		Date:       rec.Date.Format(time.RFC3339),
		Notes:      rec.Notes,
		Recurrence: string(rec.Recurrence),
	}
}
