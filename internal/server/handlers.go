package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/server/middleware"
	"github.com/jonathan/outreach-agent/internal/types"
)

const (
	// maxUploadBytes bounds the résumé upload size.
	maxUploadBytes = 10 << 20
)

// allowedExtensions are the résumé file types accepted at intake.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".docx": true,
}

// handleCreateCampaign accepts a multipart campaign submission, stores the
// résumé, creates the campaign in pending state and queues it. The response
// returns immediately; all processing happens in the background.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.GetUserID(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	req := types.CreateCampaignRequest{
		RecipientEmail: strings.TrimSpace(r.FormValue("recipient_email")),
		RecipientName:  strings.TrimSpace(r.FormValue("recipient_name")),
		CompanyName:    strings.TrimSpace(r.FormValue("company_name")),
		CompanyWebsite: strings.TrimSpace(r.FormValue("company_website")),
		JobTitle:       strings.TrimSpace(r.FormValue("job_title")),
		AdditionalInfo: strings.TrimSpace(r.FormValue("additional_info")),
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, err)
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "resume file is required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		s.jsonResponse(w, http.StatusBadRequest,
			map[string]string{"error": fmt.Sprintf("unsupported resume file type %q", ext)})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, fmt.Errorf("failed to read resume upload: %w", err))
		return
	}

	docPath, err := s.deps.Docs.Save(header.Filename, data)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	campaign := &db.Campaign{
		OwnerID:        ownerID,
		RecipientEmail: req.RecipientEmail,
		RecipientName:  req.RecipientName,
		CompanyName:    req.CompanyName,
		CompanyWebsite: req.CompanyWebsite,
		JobTitle:       req.JobTitle,
		AdditionalInfo: req.AdditionalInfo,
		DocumentPath:   docPath,
	}
	if err := s.deps.DB.CreateCampaign(r.Context(), campaign); err != nil {
		if delErr := s.deps.Docs.Delete(docPath); delErr != nil {
			log.Printf("[server] failed to clean up document %s: %v", docPath, delErr)
		}
		s.errorResponse(w, err)
		return
	}

	if !s.deps.Dispatcher.Enqueue(campaign.ID, ownerID) {
		// The campaign row exists in pending state; the watchdog will pick
		// it up once the queue drains.
		log.Printf("[server] queue full, campaign %s deferred to watchdog", campaign.ID)
	}

	s.jsonResponse(w, http.StatusAccepted, types.NewCampaignResponse(campaign))
}

// handleListCampaigns returns the caller's campaigns, newest first.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.GetUserID(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	campaigns, total, err := s.deps.DB.ListCampaigns(r.Context(), ownerID, limit, offset)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	resp := types.CampaignListResponse{
		Campaigns: make([]types.CampaignResponse, 0, len(campaigns)),
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}
	for i := range campaigns {
		resp.Campaigns = append(resp.Campaigns, types.NewCampaignResponse(&campaigns[i]))
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleGetCampaign returns one campaign.
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	ownerID, campaignID, ok := s.pathCampaign(w, r)
	if !ok {
		return
	}

	campaign, err := s.deps.DB.GetCampaign(r.Context(), campaignID, ownerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if campaign == nil {
		s.errorResponse(w, &db.ErrNotFound{Entity: "campaign", ID: campaignID})
		return
	}
	s.jsonResponse(w, http.StatusOK, types.NewCampaignResponse(campaign))
}

// handleDeleteCampaign removes a campaign, its follow-ups and its stored
// résumé.
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	ownerID, campaignID, ok := s.pathCampaign(w, r)
	if !ok {
		return
	}

	docPath, err := s.deps.DB.DeleteCampaign(r.Context(), campaignID, ownerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if docPath != "" {
		if err := s.deps.Docs.Delete(docPath); err != nil {
			log.Printf("[server] campaign %s deleted but document cleanup failed: %v", campaignID, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRetryCampaign moves a failed campaign back to pending and re-queues
// it.
func (s *Server) handleRetryCampaign(w http.ResponseWriter, r *http.Request) {
	ownerID, campaignID, ok := s.pathCampaign(w, r)
	if !ok {
		return
	}

	campaign, err := s.deps.Engine.Retry(r.Context(), campaignID, ownerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	if !s.deps.Dispatcher.Enqueue(campaign.ID, ownerID) {
		log.Printf("[server] queue full, retried campaign %s deferred to watchdog", campaign.ID)
	}
	s.jsonResponse(w, http.StatusOK, types.NewCampaignResponse(campaign))
}

// handleListFollowUps returns a campaign's follow-ups in send order.
func (s *Server) handleListFollowUps(w http.ResponseWriter, r *http.Request) {
	ownerID, campaignID, ok := s.pathCampaign(w, r)
	if !ok {
		return
	}

	// Ownership check first so a foreign campaign reads as missing
	campaign, err := s.deps.DB.GetCampaign(r.Context(), campaignID, ownerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if campaign == nil {
		s.errorResponse(w, &db.ErrNotFound{Entity: "campaign", ID: campaignID})
		return
	}

	followUps, err := s.deps.DB.ListFollowUps(r.Context(), campaignID, ownerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	resp := make([]types.FollowUpResponse, 0, len(followUps))
	for i := range followUps {
		resp = append(resp, types.NewFollowUpResponse(&followUps[i]))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"follow_ups": resp})
}

// handleSendFollowUp sends the next follow-up immediately, bypassing the
// scheduler's timing rules but not the per-campaign cap.
func (s *Server) handleSendFollowUp(w http.ResponseWriter, r *http.Request) {
	ownerID, campaignID, ok := s.pathCampaign(w, r)
	if !ok {
		return
	}

	fu, err := s.deps.Engine.SendFollowUp(r.Context(), campaignID, ownerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, types.NewFollowUpResponse(fu))
}

// handleUpsertCredentials stores a tenant's send account and generation key,
// encrypted at rest, and invalidates any cached generation client.
func (s *Server) handleUpsertCredentials(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.GetUserID(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req types.UpsertCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, err)
		return
	}

	var encSecret, encGenKey []byte
	if req.SendSecret != "" {
		if encSecret, err = s.deps.Cipher.Encrypt([]byte(req.SendSecret)); err != nil {
			s.errorResponse(w, err)
			return
		}
	}
	if req.GenerationKey != "" {
		if encGenKey, err = s.deps.Cipher.Encrypt([]byte(req.GenerationKey)); err != nil {
			s.errorResponse(w, err)
			return
		}
	}

	if err := s.deps.DB.UpsertTenantCredentials(r.Context(), ownerID, req.SendEmail, encSecret, encGenKey); err != nil {
		s.errorResponse(w, err)
		return
	}
	if s.deps.Generator != nil {
		s.deps.Generator.Invalidate(ownerID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathCampaign extracts the authenticated owner and the {id} path segment.
func (s *Server) pathCampaign(w http.ResponseWriter, r *http.Request) (ownerID, campaignID uuid.UUID, ok bool) {
	ownerID, err := middleware.GetUserID(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	campaignID, err = uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid campaign ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, campaignID, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
