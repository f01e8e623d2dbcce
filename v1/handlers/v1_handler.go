package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/mhs-association/membership-backend/shared/monitoring"
	"github.com/mhs-association/membership-backend/shared/utils"
	"github.com/mhs-association/membership-backend/v1/models"
	"github.com/mhs-association/membership-backend/v1/services"
	authutils "github.com/mhs-association/membership-backend/v1/utils"
)

// APIHandler handles all API routes
type APIHandler struct {
	authService       *services.AuthService
	memberService     *services.MemberService
	attendanceService *services.AttendanceService
	statsService      *services.StatsService
	photoService      *services.PhotoService
}

// NewAPIHandler creates a new API handler with all services wired
func NewAPIHandler(db *gorm.DB, photoService *services.PhotoService) *APIHandler {
	memberService := services.NewMemberService(db)
	return &APIHandler{
		authService:       services.NewAuthService(db),
		memberService:     memberService,
		attendanceService: services.NewAttendanceService(db, memberService),
		statsService:      services.NewStatsService(db),
		photoService:      photoService,
	}
}

// AuthService exposes the auth service for session middleware wiring.
func (h *APIHandler) AuthService() *services.AuthService {
	return h.authService
}

// SetupPublicRoutes configures the routes that work without a session.
func (h *APIHandler) SetupPublicRoutes(mux *http.ServeMux) {
	mux.Handle("/api/login", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleLogin)))
	mux.Handle("/api/profile-photo/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleProfilePhoto)))
}

// SetupRoutes configures the session-protected routes.
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	mux.Handle("/api/logout", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleLogout)))
	mux.Handle("/api/verify", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleVerify)))
	mux.Handle("/api/member/profile", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleProfile)))
	mux.Handle("/api/member/change-password", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleChangePassword)))
	mux.Handle("/api/scan", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleScan)))
	mux.Handle("/api/scan-qr", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleScan)))
	mux.Handle("/api/member-info/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleMemberInfo)))
	mux.Handle("/api/upload-profile-photo", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleUploadProfilePhoto)))
	mux.Handle("/api/import-excel", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleImport)))
	mux.Handle("/api/admin/import-excel", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleImport)))
	mux.Handle("/api/admin/members", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleAdminMembers)))
	mux.Handle("/api/admin/attendance", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleAdminAttendance)))
	mux.Handle("/api/admin/stats", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleAdminStats)))
	mux.Handle("/api/admin/expiring-members", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleExpiringMembers)))
	mux.Handle("/api/admin/create-admin", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleCreateAdmin)))
	mux.Handle("/api/admin/delete-member/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleDeleteMember)))
}

// respondServiceError maps service-layer sentinels to HTTP status codes.
// Anything unrecognized becomes a generic 500 so internals never leak.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrAccountInactive),
		errors.Is(err, models.ErrWrongCurrentPassword):
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrMemberNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrDuplicateEmail),
		errors.Is(err, models.ErrDuplicateMemberNumber),
		errors.Is(err, models.ErrPasswordTooShort),
		errors.Is(err, models.ErrSelfDeletionForbidden),
		errors.Is(err, models.ErrInvalidFileType),
		errors.Is(err, models.ErrFileTooLarge):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *APIHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		monitoring.RecordBusinessEvent("login", "failure")
		respondServiceError(w, err)
		return
	}

	monitoring.RecordBusinessEvent("login", "success")
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	token, err := authutils.ExtractToken(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Logged out")
}

func (h *APIHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, err := authutils.RequireAuthentication(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  user,
	})
}

func (h *APIHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, err := authutils.RequireAuthentication(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.memberService.GetProfile(r.Context(), user.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *APIHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, err := authutils.RequireAuthentication(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), user.Email, &req); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Password changed")
}

func (h *APIHandler) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, err := authutils.RequireAdmin(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MemberNumber == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Member number is required")
		return
	}

	resp, err := h.attendanceService.Scan(r.Context(), &req, user.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) handleMemberInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, err := authutils.RequireAdmin(r); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	memberNumber := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/member-info"), "/")
	if memberNumber == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Member number is required")
		return
	}

	info, err := h.memberService.GetMemberInfo(r.Context(), memberNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, info)
}

func (h *APIHandler) handleAdminMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, err := authutils.RequireAdmin(r); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	rows, err := h.memberService.GetAllMembers(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.CollectionResponse{Items: rows, Count: len(rows)})
}

func (h *APIHandler) handleAdminAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, err := authutils.RequireAdmin(r); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.attendanceService.RecentAttendance(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.CollectionResponse{Items: records, Count: len(records)})
}

func (h *APIHandler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, err := authutils.RequireAdmin(r); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	stats, err := h.statsService.DashboardStats(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) handleExpiringMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, err := authutils.RequireAdmin(r); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	members, err := h.statsService.ExpiringMembers(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.CollectionResponse{Items: members, Count: len(members)})
}

func (h *APIHandler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, err := authutils.RequireAdmin(r); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	var req models.CreateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.FirstName == "" || req.Surname == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email, first name and surname are required")
		return
	}

	admin, err := h.memberService.CreateAdmin(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, admin)
}

func (h *APIHandler) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, err := authutils.RequireAdmin(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	memberNumber := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admin/delete-member"), "/")
	if memberNumber == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Member number is required")
		return
	}

	if err := h.memberService.DeleteMember(r.Context(), memberNumber, user.MemberNumber); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Member deleted")
}

func (h *APIHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, err := authutils.RequireAdmin(r); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	var req models.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Members) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No members to import")
		return
	}

	resp, err := h.memberService.ImportMembers(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) handleUploadProfilePhoto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, err := authutils.RequireAuthentication(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Photo file is required")
		return
	}
	defer file.Close()

	filename, err := h.photoService.Store(header.Filename, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	photoURL := "/api/profile-photo/" + filename
	if err := h.memberService.UpdatePhotoURL(r.Context(), user.Email, photoURL); err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"photo_url": photoURL,
	})
}

func (h *APIHandler) handleProfilePhoto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/profile-photo"), "/")
	if filename == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	path, err := h.photoService.Path(filename)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Photo not found")
		return
	}
	http.ServeFile(w, r, path)
}
