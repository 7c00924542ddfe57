package service

import (
	"context"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LogService interface {
	LogAction(ctx context.Context, actor models.Identity, action, description, ipAddress string, metadata map[string]interface{}) error
	GetAllLogs(ctx context.Context, caller models.Identity, page, limit int) ([]*models.LogEntry, error)
	GetLogsByUserID(ctx context.Context, caller models.Identity, userID string, page, limit int) ([]*models.LogEntry, error)
}

type logService struct {
	logRepo repository.LogRepository
}

func NewLogService(logRepo repository.LogRepository) LogService {
	return &logService{logRepo: logRepo}
}

func (s *logService) LogAction(ctx context.Context, actor models.Identity, action, description, ipAddress string, metadata map[string]interface{}) error {
	logEntry := &models.LogEntry{
		UserID:      actor.ID,
		Role:        actor.Role,
		Action:      action,
		Description: description,
		IPAddress:   ipAddress,
		Metadata:    metadata,
	}
	return s.logRepo.SaveLog(ctx, logEntry)
}

func (s *logService) GetAllLogs(ctx context.Context, caller models.Identity, page, limit int) ([]*models.LogEntry, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Unauthorized("Unauthorized access")
	}
	page, limit = clampPage(page, limit)
	logs, err := s.logRepo.GetAllLogs(ctx, page, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return logs, nil
}

func (s *logService) GetLogsByUserID(ctx context.Context, caller models.Identity, userID string, page, limit int) ([]*models.LogEntry, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Unauthorized("Unauthorized access")
	}
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Validation("Invalid user ID")
	}
	page, limit = clampPage(page, limit)
	logs, err := s.logRepo.GetLogsByUserID(ctx, objID, page, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return logs, nil
}

const maxLogPage = 500

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLogPage {
		limit = maxLogPage
	}
	return page, limit
}
