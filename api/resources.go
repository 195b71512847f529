// ABOUTME: Typed CRUD calls for stages, deals, activity schedules, customers and documents
// ABOUTME: Partial updates are sent as PATCH bodies that only carry the changed fields
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/harperreed/dealflow/models"
)

const (
	stagesPath    = "stages"
	dealsPath     = "deals"
	schedulesPath = "activity_schedules"
	customersPath = "customers"
	documentsPath = "documents"
)

// Patch payloads live in models so the server can decode the same bodies.
type (
	StagePatch    = models.StagePatch
	DealPatch     = models.DealPatch
	SchedulePatch = models.SchedulePatch
	CustomerPatch = models.CustomerPatch
)

// Stages

func (c *Client) ListStages(ctx context.Context) ([]models.Stage, error) {
	var stages []models.Stage
	err := c.do(ctx, http.MethodGet, stagesPath+"/", nil, nil, &stages)
	return stages, err
}

func (c *Client) CreateStage(ctx context.Context, stage models.Stage) (models.Stage, error) {
	stage.Deals = nil
	var created models.Stage
	err := c.do(ctx, http.MethodPost, stagesPath+"/", nil, stage, &created)
	return created, err
}

func (c *Client) UpdateStage(ctx context.Context, id string, patch StagePatch) error {
	return c.do(ctx, http.MethodPatch, itemPath(stagesPath, id), nil, patch, nil)
}

func (c *Client) DeleteStage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(stagesPath, id), nil, nil, nil)
}

// Deals

func (c *Client) ListDeals(ctx context.Context) ([]models.Deal, error) {
	var deals []models.Deal
	err := c.do(ctx, http.MethodGet, dealsPath+"/", nil, nil, &deals)
	return deals, err
}

func (c *Client) CreateDeal(ctx context.Context, deal models.Deal) (models.Deal, error) {
	deal.ActivitySchedules = nil
	var created models.Deal
	err := c.do(ctx, http.MethodPost, dealsPath+"/", nil, deal, &created)
	return created, err
}

func (c *Client) UpdateDeal(ctx context.Context, id string, patch DealPatch) error {
	return c.do(ctx, http.MethodPatch, itemPath(dealsPath, id), nil, patch, nil)
}

func (c *Client) DeleteDeal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(dealsPath, id), nil, nil, nil)
}

// Activity schedules

func (c *Client) ListSchedules(ctx context.Context) ([]models.ActivitySchedule, error) {
	var schedules []models.ActivitySchedule
	err := c.do(ctx, http.MethodGet, schedulesPath+"/", nil, nil, &schedules)
	return schedules, err
}

func (c *Client) CreateSchedule(ctx context.Context, s models.ActivitySchedule) (models.ActivitySchedule, error) {
	var created models.ActivitySchedule
	err := c.do(ctx, http.MethodPost, schedulesPath+"/", nil, s, &created)
	return created, err
}

func (c *Client) UpdateSchedule(ctx context.Context, id string, patch SchedulePatch) error {
	return c.do(ctx, http.MethodPatch, itemPath(schedulesPath, id), nil, patch, nil)
}

func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(schedulesPath, id), nil, nil, nil)
}

// Customers

func (c *Client) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := c.do(ctx, http.MethodGet, customersPath+"/", nil, nil, &customers)
	return customers, err
}

func (c *Client) CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	var created models.Customer
	err := c.do(ctx, http.MethodPost, customersPath+"/", nil, customer, &created)
	return created, err
}

func (c *Client) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	var customer models.Customer
	err := c.do(ctx, http.MethodGet, itemPath(customersPath, id), nil, nil, &customer)
	return customer, err
}

func (c *Client) UpdateCustomer(ctx context.Context, id string, patch CustomerPatch) error {
	return c.do(ctx, http.MethodPatch, itemPath(customersPath, id), nil, patch, nil)
}

func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(customersPath, id), nil, nil, nil)
}

// Documents

// Fetch lists server documents of one kind. It satisfies merge.DocumentSource.
func (c *Client) Fetch(ctx context.Context, kind models.DocumentKind) ([]models.Document, error) {
	var docs []models.Document
	err := c.do(ctx, http.MethodGet, documentsPath+"/", url.Values{"kind": {string(kind)}}, nil, &docs)
	for i := range docs {
		docs[i].Source = models.SourceServer
	}
	return docs, err
}

func (c *Client) CreateDocument(ctx context.Context, doc models.Document) (models.Document, error) {
	var created models.Document
	err := c.do(ctx, http.MethodPost, documentsPath+"/", nil, doc, &created)
	return created, err
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(documentsPath, id), nil, nil, nil)
}
