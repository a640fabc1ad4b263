package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

var (
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
	ErrMessageInvalid  = fmt.Errorf("%w: name, email and message are required", ErrValidation)
)

type ContactService struct {
	contactRepo repository.ContactRepository
}

func NewContactService(contactRepo repository.ContactRepository) *ContactService {
	return &ContactService{contactRepo: contactRepo}
}

func (s *ContactService) Submit(ctx context.Context, req dto.ContactRequest) (*dto.ContactMessageResponse, error) {
	msg := &model.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Message: strings.TrimSpace(req.Message),
		Status:  model.MessageStatusUnread,
	}
	if msg.Name == "" || msg.Email == "" || msg.Message == "" {
		return nil, ErrMessageInvalid
	}
	if err := s.contactRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	resp := toContactResponse(msg)
	return &resp, nil
}

func (s *ContactService) List(ctx context.Context) ([]dto.ContactMessageResponse, error) {
	msgs, err := s.contactRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ContactMessageResponse, 0, len(msgs))
	for i := range msgs {
		resp = append(resp, toContactResponse(&msgs[i]))
	}
	return resp, nil
}

func (s *ContactService) MarkRead(ctx context.Context, id uuid.UUID) error {
	err := s.contactRepo.SetStatus(ctx, id, model.MessageStatusRead)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMessageNotFound
	}
	return err
}

func toContactResponse(m *model.ContactMessage) dto.ContactMessageResponse {
	return dto.ContactMessageResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Message:   m.Message,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}
