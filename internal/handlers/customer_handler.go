package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/middleware"
	"github.com/fleetride/backoffice/internal/models"
)

// CustomerHandler exposes customer management over HTTP
type CustomerHandler struct {
	customerRepo *database.CustomerRepository
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerRepo *database.CustomerRepository) *CustomerHandler {
	return &CustomerHandler{customerRepo: customerRepo}
}

// CreateCustomer registers a customer for the caller's company
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	companyID, ok := middleware.CompanyScope(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company scope is required"})
		return
	}

	var req models.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer := &models.Customer{
		CompanyID: companyID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
	}
	if err := h.customerRepo.Create(customer); err != nil {
		respondError(c, apperrors.Internal("failed to create customer", err))
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// GetCustomer retrieves a customer by ID
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.fetchCustomer(c)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// ListCustomers retrieves all customers for the caller's company
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	companyID, ok := middleware.CompanyScope(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company scope is required"})
		return
	}

	customers, err := h.customerRepo.GetByCompanyID(companyID)
	if err != nil {
		respondError(c, apperrors.Internal("failed to list customers", err))
		return
	}

	c.JSON(http.StatusOK, customers)
}

// UpdateCustomer updates customer details
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	customer, err := h.fetchCustomer(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer.Name = req.Name
	customer.Phone = req.Phone
	customer.Email = req.Email

	if err := h.customerRepo.Update(customer); err != nil {
		respondError(c, apperrors.Internal("failed to update customer", err))
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer removes a customer
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	customer, err := h.fetchCustomer(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.customerRepo.Delete(customer.ID); err != nil {
		respondError(c, apperrors.Internal("failed to delete customer", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "customer deleted"})
}

func (h *CustomerHandler) fetchCustomer(c *gin.Context) (*models.Customer, error) {
	customer, err := h.customerRepo.GetByID(c.Param("id"))
	if err != nil {
		return nil, apperrors.Internal("failed to get customer", err)
	}
	if customer == nil {
		return nil, apperrors.NotFound("customer not found")
	}

	userCtx, exists := middleware.GetUserContext(c)
	if exists && userCtx.CompanyID != nil && *userCtx.CompanyID != customer.CompanyID {
		return nil, apperrors.NotFound("customer not found")
	}

	return customer, nil
}
