// Package crm exposes customer and project CRUD to the HTTP layer.
package crm

import (
	"context"

	"github.com/google/uuid"

	"github.com/channelops/backend/internal/domain/crm"
	"github.com/channelops/backend/internal/domain/shared"
)

// CustomerService handles customer record operations
type CustomerService struct {
	customers crm.CustomerRepository
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customers crm.CustomerRepository) *CustomerService {
	return &CustomerService{customers: customers}
}

// Create creates a new customer record
func (s *CustomerService) Create(ctx context.Context, userID string, req CreateCustomerRequest) (*CustomerResponse, error) {
	customer, err := crm.NewCustomer(userID, req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	customer.Phone = req.Phone

	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID retrieves a customer owned by the user
func (s *CustomerService) GetByID(ctx context.Context, userID string, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// List retrieves a page of customers
func (s *CustomerService) List(ctx context.Context, userID string, filter ListFilter) ([]CustomerResponse, int64, error) {
	domainFilter := toDomainFilter(filter)
	customers, err := s.customers.FindAllForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.customers.CountForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CustomerResponse, len(customers))
	for i := range customers {
		responses[i] = ToCustomerResponse(&customers[i])
	}
	return responses, total, nil
}

// Update applies the populated fields of the request
func (s *CustomerService) Update(ctx context.Context, userID string, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
		}
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}

	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// Delete removes a customer owned by the user
func (s *CustomerService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	customer, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.customers.Delete(ctx, customer.ID)
}

func (s *CustomerService) findOwned(ctx context.Context, userID string, id uuid.UUID) (*crm.Customer, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return customer, nil
}

// ProjectService handles project operations
type ProjectService struct {
	projects crm.ProjectRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(projects crm.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

// Create creates a new project
func (s *ProjectService) Create(ctx context.Context, userID string, req CreateProjectRequest) (*ProjectResponse, error) {
	project, err := crm.NewProject(userID, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	project.DueDate = req.DueDate

	if err := s.projects.Save(ctx, project); err != nil {
		return nil, err
	}
	response := ToProjectResponse(project)
	return &response, nil
}

// GetByID retrieves a project owned by the user
func (s *ProjectService) GetByID(ctx context.Context, userID string, id uuid.UUID) (*ProjectResponse, error) {
	project, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	response := ToProjectResponse(project)
	return &response, nil
}

// List retrieves a page of projects
func (s *ProjectService) List(ctx context.Context, userID string, filter ListFilter) ([]ProjectResponse, int64, error) {
	domainFilter := toDomainFilter(filter)
	projects, err := s.projects.FindAllForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.projects.CountForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ProjectResponse, len(projects))
	for i := range projects {
		responses[i] = ToProjectResponse(&projects[i])
	}
	return responses, total, nil
}

// Update applies the populated fields of the request
func (s *ProjectService) Update(ctx context.Context, userID string, id uuid.UUID, req UpdateProjectRequest) (*ProjectResponse, error) {
	project, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, shared.NewDomainError("INVALID_NAME", "Project name cannot be empty")
		}
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.DueDate != nil {
		project.DueDate = req.DueDate
	}

	if err := s.projects.Save(ctx, project); err != nil {
		return nil, err
	}
	response := ToProjectResponse(project)
	return &response, nil
}

// Complete marks a project as done
func (s *ProjectService) Complete(ctx context.Context, userID string, id uuid.UUID) (*ProjectResponse, error) {
	project, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := project.Complete(); err != nil {
		return nil, err
	}
	if err := s.projects.Save(ctx, project); err != nil {
		return nil, err
	}
	response := ToProjectResponse(project)
	return &response, nil
}

// Delete removes a project owned by the user
func (s *ProjectService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	project, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.projects.Delete(ctx, project.ID)
}

func (s *ProjectService) findOwned(ctx context.Context, userID string, id uuid.UUID) (*crm.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return project, nil
}

func toDomainFilter(filter ListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Search:   filter.Search,
		Filters:  map[string]interface{}{},
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	return domainFilter
}
