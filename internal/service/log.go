package service

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"license-binding-server/internal/model"
)

// EventLog records every notification in the notification_events table.
type EventLog struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewEventLog(db *gorm.DB, logger *slog.Logger) (*EventLog, error) {
	if err := db.AutoMigrate(&model.NotificationEvent{}); err != nil {
		return nil, err
	}
	return &EventLog{db: db, logger: logger, now: time.Now}, nil
}

// Notify stores the notification. Failures are logged and dropped.
func (l *EventLog) Notify(eventType, detail, sourceIP string) {
	event := &model.NotificationEvent{
		EventType: eventType,
		Details:   detail,
		SourceIP:  sourceIP,
		CreatedAt: l.now().UTC(),
	}
	if err := l.db.Create(event).Error; err != nil {
		l.logger.Error("record notification failed",
			slog.String("event_type", eventType),
			slog.Any("error", err))
	}
}

// GetNotificationEvents returns one page of events, newest first.
func (l *EventLog) GetNotificationEvents(page, pageSize int) ([]model.NotificationEvent, int64, error) {
	var events []model.NotificationEvent
	var total int64

	if err := l.db.Model(&model.NotificationEvent{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := l.db.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// GetEventsByType returns one page of events of a single type, newest first.
func (l *EventLog) GetEventsByType(eventType string, page, pageSize int) ([]model.NotificationEvent, int64, error) {
	var events []model.NotificationEvent
	var total int64

	db := l.db.Model(&model.NotificationEvent{}).Where("event_type = ?", eventType)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := l.db.Where("event_type = ?", eventType).Order("created_at DESC, id DESC").
		Offset(offset).Limit(pageSize).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// DailyCounts groups the events recorded in [start, end] by UTC day.
func (l *EventLog) DailyCounts(start, end time.Time) ([]model.DailyEventCount, error) {
	var events []model.NotificationEvent
	if err := l.db.Where("created_at BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}

	counts := []model.DailyEventCount{}
	for _, e := range events {
		day := e.CreatedAt.UTC().Format(dateLayout)
		if len(counts) == 0 || counts[len(counts)-1].Date != day {
			counts = append(counts, model.DailyEventCount{Date: day})
		}
		last := &counts[len(counts)-1]
		last.TotalEvents++
		if IsSecurityAlert(e.EventType) {
			last.Alerts++
		}
	}
	return counts, nil
}
