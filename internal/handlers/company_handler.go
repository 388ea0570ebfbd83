package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/models"
)

// CompanyHandler exposes company registration and the super-admin approval
// tier over HTTP
type CompanyHandler struct {
	companyRepo *database.CompanyRepository
	logger      *logrus.Logger
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(companyRepo *database.CompanyRepository, logger *logrus.Logger) *CompanyHandler {
	return &CompanyHandler{companyRepo: companyRepo, logger: logger}
}

// RegisterCompany registers a company in pending status
func (h *CompanyHandler) RegisterCompany(c *gin.Context) {
	var req models.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company := &models.Company{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Status:  models.CompanyStatusPending,
	}
	if err := h.companyRepo.Create(company); err != nil {
		respondError(c, apperrors.Internal("failed to register company", err))
		return
	}

	h.logger.WithField("company_id", company.ID).Info("Company registered, pending approval")

	c.JSON(http.StatusCreated, company)
}

// ListCompanies lists companies, optionally filtered by status
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	var status *models.CompanyStatus
	if raw := c.Query("status"); raw != "" {
		s := models.CompanyStatus(raw)
		status = &s
	}

	companies, err := h.companyRepo.GetAll(status)
	if err != nil {
		respondError(c, apperrors.Internal("failed to list companies", err))
		return
	}

	c.JSON(http.StatusOK, companies)
}

// GetCompany retrieves a company by ID
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	company, err := h.companyRepo.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.Internal("failed to get company", err))
		return
	}
	if company == nil {
		respondError(c, apperrors.NotFound("company not found"))
		return
	}

	c.JSON(http.StatusOK, company)
}

// ApproveCompany moves a pending company to approved
func (h *CompanyHandler) ApproveCompany(c *gin.Context) {
	company, err := h.companyRepo.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.Internal("failed to get company", err))
		return
	}
	if company == nil {
		respondError(c, apperrors.NotFound("company not found"))
		return
	}
	if company.Status == models.CompanyStatusApproved {
		respondError(c, apperrors.Conflict("company is already approved"))
		return
	}

	if err := h.companyRepo.Approve(company.ID); err != nil {
		respondError(c, apperrors.Internal("failed to approve company", err))
		return
	}

	h.logger.WithField("company_id", company.ID).Info("Company approved")

	company.Status = models.CompanyStatusApproved
	c.JSON(http.StatusOK, company)
}

// RejectCompany moves a company to rejected
func (h *CompanyHandler) RejectCompany(c *gin.Context) {
	var req models.RejectCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	company, err := h.companyRepo.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.Internal("failed to get company", err))
		return
	}
	if company == nil {
		respondError(c, apperrors.NotFound("company not found"))
		return
	}

	if err := h.companyRepo.Reject(company.ID, req.Reason); err != nil {
		respondError(c, apperrors.Internal("failed to reject company", err))
		return
	}

	company.Status = models.CompanyStatusRejected
	company.RejectionReason = req.Reason
	c.JSON(http.StatusOK, company)
}
