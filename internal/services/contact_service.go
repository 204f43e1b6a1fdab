package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sitekit/internal/rest"
	api "sitekit/pkg/contracts/api/v1"
	"sitekit/pkg/contracts/domain"
)

// ContactService stores contact form submissions in memory. The store
// is process-scoped and mutex-guarded; persistence is the caller's
// concern if it ever matters.
type ContactService struct {
	validate *validator.Validate
	logger   *slog.Logger

	mu       sync.RWMutex
	messages []domain.ContactMessage
}

// NewContactService creates the contact service.
func NewContactService(logger *slog.Logger) *ContactService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactService{
		validate: validator.New(),
		logger:   logger.With(slog.String("service", "contact")),
	}
}

// Submit validates and stores a submission. Validation failures come
// back as a field-keyed rest.ValidationError so the API answers 409.
func (s *ContactService) Submit(ctx context.Context, req api.ContactRequest) (domain.ContactMessage, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return domain.ContactMessage{}, rest.FromValidator(err)
	}
	if req.Budget.IsNegative() {
		verr := make(rest.ValidationError)
		verr.Add("budget", "must not be negative")
		return domain.ContactMessage{}, verr
	}

	msg := domain.ContactMessage{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		Budget:    req.Budget,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	count := len(s.messages)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "contact message stored",
		slog.String("id", msg.ID),
		slog.Int("total", count),
	)
	return msg, nil
}

// List returns stored messages, newest first.
func (s *ContactService) List(ctx context.Context) []domain.ContactMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ContactMessage, len(s.messages))
	for i, msg := range s.messages {
		out[len(s.messages)-1-i] = msg
	}
	return out
}

// TotalBudget sums the budgets of every stored message. Decimal
// arithmetic keeps the sum exact.
func (s *ContactService) TotalBudget(ctx context.Context) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, msg := range s.messages {
		total = total.Add(msg.Budget)
	}
	return total
}
