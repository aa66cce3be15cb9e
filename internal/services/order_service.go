package services

import (
	"context"
	"errors"
	"fmt"

	"relatorios/internal/models"
	"relatorios/internal/repositories"
	"relatorios/internal/viewstate"

	"github.com/rs/zerolog"
)

// Test document field written by the permission smoke test.
const fieldSmokeTest = "teste"

// OrderServiceInterface drives the orders screen: every remote change that
// succeeds is mirrored into the view state.
type OrderServiceInterface interface {
	Search(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error)
	Save(ctx context.Context, id string, fields models.Fields) error
	Delete(ctx context.Context, id string) error
	SmokeTestPermissions(ctx context.Context) (*models.PermissionReport, error)
}

type orderService struct {
	resolver  repositories.TenantResolver
	orderRepo repositories.OrderRepository
	view      *viewstate.Cache
	log       zerolog.Logger
}

// NewOrderService creates a new order service instance
func NewOrderService(resolver repositories.TenantResolver, orderRepo repositories.OrderRepository, view *viewstate.Cache, log zerolog.Logger) OrderServiceInterface {
	return &orderService{
		resolver:  resolver,
		orderRepo: orderRepo,
		view:      view,
		log:       log.With().Str("service", "orders").Logger(),
	}
}

func (s *orderService) Search(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error) {
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.view.SetAll(orders)
	return orders, nil
}

// Save merges fields into the order and, once stored, into the view state.
func (s *orderService) Save(ctx context.Context, id string, fields models.Fields) error {
	patch := fields.Clone()
	if err := s.orderRepo.Update(ctx, id, patch); err != nil {
		return err
	}
	s.view.PatchOne(id, patch)
	return nil
}

func (s *orderService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	capturedID := id
	if err := s.orderRepo.Delete(ctx, capturedID); err != nil {
		return err
	}
	s.view.RemoveOne(capturedID)
	s.log.Info().Str("order_id", capturedID).Msg("order deleted")
	return nil
}

// SmokeTestPermissions runs create, read, update and delete against a test
// order. Step failures are reported, not returned; only a missing tenant
// context is an error.
func (s *orderService) SmokeTestPermissions(ctx context.Context) (*models.PermissionReport, error) {
	tc, err := s.resolver.RequireTenantContext(ctx)
	if err != nil {
		return nil, err
	}
	report := &models.PermissionReport{TenantID: tc.TenantID, Role: tc.Role}

	if err := s.exercise(ctx, report); err != nil {
		report.Error = err.Error()
	}

	s.log.Info().
		Str("tenant_id", report.TenantID).
		Str("role", report.Role).
		Bool("create", report.Create).
		Bool("read", report.Read).
		Bool("update", report.Update).
		Bool("delete", report.Delete).
		Str("error", report.Error).
		Msg("permission smoke test")
	return report, nil
}

func (s *orderService) exercise(ctx context.Context, report *models.PermissionReport) error {
	id, err := s.orderRepo.Create(ctx, models.Fields{fieldSmokeTest: true})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	report.TestDocID = id
	report.Create = true

	found, err := s.orderRepo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	report.Read = found != nil

	if err := s.orderRepo.Update(ctx, id, models.Fields{fieldSmokeTest: false}); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	report.Update = true

	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	report.Delete = true

	if !report.Read {
		return errors.New("read: test order not found after create")
	}
	return nil
}
