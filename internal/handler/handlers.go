// Package handler provides the HTTP command layer over the tenant facades.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/apikey"
	"github.com/orgstack/orgdir/internal/httperr"
	"github.com/orgstack/orgdir/internal/middleware"
	"github.com/orgstack/orgdir/internal/model"
	"github.com/orgstack/orgdir/internal/service"
	"github.com/orgstack/orgdir/internal/store"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	registry     *service.Registry
	store        store.DirectoryStore
	keys         apikey.Store
	errorHandler *httperr.Handler
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	registry *service.Registry,
	directoryStore store.DirectoryStore,
	keys apikey.Store,
	errorHandler *httperr.Handler,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		registry:     registry,
		store:        directoryStore,
		keys:         keys,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

type registerOrganizationRequest struct {
	Name string `json:"name"`
}

type registerOrganizationResponse struct {
	Organization organizationResponse `json:"organization"`
	APIKey       string               `json:"api_key"`
}

type employeeRequest struct {
	Name        string  `json:"name"`
	HireDate    string  `json:"hire_date"`
	Position    string  `json:"position"`
	Salary      float64 `json:"salary"`
	Performance float64 `json:"performance"`
}

type departmentRequest struct {
	Name        string `json:"name"`
	HeadLocalID int64  `json:"head_local_id"`
}

type employeeResponse struct {
	LocalID     int64   `json:"local_id"`
	Name        string  `json:"name"`
	HireDate    string  `json:"hire_date"`
	Position    string  `json:"position"`
	Salary      float64 `json:"salary"`
	Performance float64 `json:"performance"`
}

type departmentResponse struct {
	LocalID     int64              `json:"local_id"`
	Name        string             `json:"name"`
	HeadLocalID int64              `json:"head_local_id,omitempty"`
	Employees   []employeeResponse `json:"employees,omitempty"`
}

type organizationResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Departments []departmentResponse `json:"departments,omitempty"`
}

const hireDateLayout = "2006-01-02"

func toEmployeeResponse(e *model.Employee) employeeResponse {
	return employeeResponse{
		LocalID:     e.LocalID,
		Name:        e.Name,
		HireDate:    e.HireDate.Format(hireDateLayout),
		Position:    string(e.Position),
		Salary:      e.Salary,
		Performance: e.Performance,
	}
}

func toDepartmentResponse(d *model.Department) departmentResponse {
	resp := departmentResponse{
		LocalID:     d.LocalID,
		Name:        d.Name,
		HeadLocalID: d.HeadLocalID,
	}
	for _, e := range d.Employees {
		resp.Employees = append(resp.Employees, toEmployeeResponse(e))
	}
	return resp
}

func toOrganizationResponse(o *model.Organization) organizationResponse {
	resp := organizationResponse{
		ID:   o.ID,
		Name: o.Name,
	}
	for _, d := range o.Departments {
		resp.Departments = append(resp.Departments, toDepartmentResponse(d))
	}
	return resp
}

// RegisterOrganization handles POST /api/v1/organizations. Registration goes
// straight to the backing store; the tenant's facade is built lazily on its
// first authenticated request. A fresh API key is minted for the tenant.
func (h *Handlers) RegisterOrganization(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var req registerOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body", requestID)
		return
	}

	draft := model.OrganizationDraft{Name: req.Name}
	if err := draft.Validate(); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	org, err := h.store.InsertOrganization(r.Context(), draft)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	key := uuid.New().String()
	if err := h.keys.Put(r.Context(), key, org.ID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.Info("Organization registered",
		zap.Int64("tenant_id", org.ID),
		zap.String("request_id", requestID))
	h.writeJSON(w, http.StatusCreated, registerOrganizationResponse{
		Organization: toOrganizationResponse(org),
		APIKey:       key,
	})
}

// GetOrganization handles GET /api/v1/organization. It serves the facade's
// construction-time snapshot; organization changes made after the facade was
// built are not reflected here.
func (h *Handlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}

	org := facade.Organization()
	if org == nil {
		h.errorHandler.WriteNotFound(w, "organization not found", r.Header.Get("X-Request-ID"))
		return
	}
	h.writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}

// GetOrganizationStructure handles GET /api/v1/organization/structure,
// rendering the organization tree as plain text.
func (h *Handlers) GetOrganizationStructure(w http.ResponseWriter, r *http.Request) {
	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}

	org := facade.Organization()
	if org == nil {
		h.errorHandler.WriteNotFound(w, "organization not found", r.Header.Get("X-Request-ID"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(model.Tree(org)))
}

// GetEmployee handles GET /api/v1/employees/{id}.
func (h *Handlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}
	localID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	emp, err := facade.GetEmployee(r.Context(), localID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

// GetDepartment handles GET /api/v1/departments/{id}.
func (h *Handlers) GetDepartment(w http.ResponseWriter, r *http.Request) {
	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}
	localID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	dept, err := facade.GetDepartment(r.Context(), localID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDepartmentResponse(dept))
}

// AddDepartment handles POST /api/v1/departments.
func (h *Handlers) AddDepartment(w http.ResponseWriter, r *http.Request) {
	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}

	var req departmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body", r.Header.Get("X-Request-ID"))
		return
	}

	dept, err := facade.AddDepartment(r.Context(), model.DepartmentDraft{Name: req.Name})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toDepartmentResponse(dept))
}

// AddEmployee handles POST /api/v1/departments/{id}/employees.
func (h *Handlers) AddEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}
	deptLocalID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body", requestID)
		return
	}

	hireDate := time.Now().UTC()
	if req.HireDate != "" {
		parsed, err := time.Parse(hireDateLayout, req.HireDate)
		if err != nil {
			h.errorHandler.WriteValidationError(w, "hire_date must be YYYY-MM-DD", requestID)
			return
		}
		hireDate = parsed
	}

	draft := model.EmployeeDraft{
		Name:        req.Name,
		HireDate:    hireDate,
		Position:    model.ParsePosition(req.Position),
		Salary:      req.Salary,
		Performance: req.Performance,
	}

	emp, err := facade.AddEmployee(r.Context(), deptLocalID, draft)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toEmployeeResponse(emp))
}

// RemoveEmployee handles DELETE /api/v1/departments/{deptID}/employees/{empID}.
func (h *Handlers) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}
	deptLocalID, ok := h.pathID(w, r, "deptID")
	if !ok {
		return
	}
	empLocalID, ok := h.pathID(w, r, "empID")
	if !ok {
		return
	}

	removed, err := facade.RemoveEmployee(r.Context(), deptLocalID, empLocalID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if !removed {
		h.errorHandler.WriteNotFound(w, "employee or department not found", r.Header.Get("X-Request-ID"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateEmployee handles PUT /api/v1/employees/{id}. The hire date cannot be
// changed through this operation.
func (h *Handlers) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}
	localID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body", requestID)
		return
	}

	updated, err := facade.UpdateEmployee(r.Context(), &model.Employee{
		LocalID:     localID,
		Name:        req.Name,
		Position:    model.ParsePosition(req.Position),
		Salary:      req.Salary,
		Performance: req.Performance,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if !updated {
		h.errorHandler.WriteRejection(w, "employee update rejected", requestID)
		return
	}

	emp, err := facade.GetEmployee(r.Context(), localID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

// UpdateDepartment handles PUT /api/v1/departments/{id}. Setting a head that
// is not enrolled in the department is rejected without changing stored
// state.
func (h *Handlers) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	facade, ok := h.tenantFacade(w, r)
	if !ok {
		return
	}
	localID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req departmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body", requestID)
		return
	}

	updated, err := facade.UpdateDepartment(r.Context(), &model.Department{
		LocalID:     localID,
		Name:        req.Name,
		HeadLocalID: req.HeadLocalID,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if !updated {
		h.errorHandler.WriteRejection(w, "department update rejected", requestID)
		return
	}

	dept, err := facade.GetDepartment(r.Context(), localID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDepartmentResponse(dept))
}

// tenantFacade resolves the authenticated tenant's facade. Writes the error
// response itself and returns false when the tenant is missing from the
// context or facade construction fails.
func (h *Handlers) tenantFacade(w http.ResponseWriter, r *http.Request) (*service.Facade, bool) {
	tenantID, ok := middleware.TenantID(r.Context())
	if !ok {
		h.errorHandler.WriteErrorResponse(w, http.StatusUnauthorized, httperr.ErrorCodeUnauthorized, "missing tenant", r.Header.Get("X-Request-ID"))
		return nil, false
	}

	facade, err := h.registry.GetFacade(r.Context(), tenantID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return facade, true
}

// pathID parses a numeric path variable. Writes the error response itself
// and returns false when the variable is not a positive integer.
func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.errorHandler.WriteValidationError(w, name+" must be a positive integer", r.Header.Get("X-Request-ID"))
		return 0, false
	}
	return id, true
}

// writeJSON writes a JSON response with the given status code.
func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
