// Package booking は予約の作成・一覧・ステータス遷移を提供する。
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/artspace/internal/metrics"
	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/notify"
	"github.com/hitoshi/artspace/internal/repository"
	"github.com/hitoshi/artspace/internal/security"
)

// defaultLocation は開催場所が未指定の場合の既定値。
const defaultLocation = "Studio location"

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// CreateInput は予約作成の入力。
type CreateInput struct {
	ArtistID        string
	ServiceName     string
	AppointmentDate string // YYYY-MM-DD
	AppointmentTime string // HH:MM
	Location        string
	Notes           string
	TotalAmount     *float64
}

// Service は予約処理を提供する。
type Service struct {
	bookings  repository.BookingRepository
	users     repository.UserRepository
	artists   repository.ArtistRepository
	sanitizer security.ContentSanitizerService
	notifier  notify.Sender
	collector metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	bookings repository.BookingRepository,
	users repository.UserRepository,
	artists repository.ArtistRepository,
	sanitizer security.ContentSanitizerService,
	notifier notify.Sender,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		bookings:  bookings,
		users:     users,
		artists:   artists,
		sanitizer: sanitizer,
		notifier:  notifier,
		collector: collector,
		logger:    logger,
		now:       time.Now,
	}
}

// Create はクライアントの予約リクエストを作成する。
// 入力バリデーションはDBアクセスより先に行い、不正な入力では一切の
// 永続化処理を行わない。作成後のアーティスト通知はベストエフォートで、
// 送信失敗しても予約の成立には影響しない。
func (s *Service) Create(ctx context.Context, customerID string, input CreateInput) (*model.Booking, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	customer, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	if customer == nil {
		return nil, model.NewUserNotFoundError()
	}

	artist, err := s.users.FindByID(ctx, input.ArtistID)
	if err != nil {
		return nil, fmt.Errorf("failed to find artist: %w", err)
	}
	if artist == nil || artist.UserType != model.UserTypeArtist {
		return nil, model.NewArtistNotFoundError(input.ArtistID)
	}

	location := strings.TrimSpace(input.Location)
	if location == "" {
		location = defaultLocation
	}

	booking := &model.Booking{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		ArtistID:        input.ArtistID,
		ServiceName:     strings.TrimSpace(input.ServiceName),
		AppointmentDate: input.AppointmentDate,
		AppointmentTime: input.AppointmentTime,
		Location:        location,
		Notes:           s.sanitizer.Sanitize(input.Notes),
		Status:          model.BookingStatusPending,
		TotalAmount:     input.TotalAmount,
		CreatedAt:       s.now(),
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.collector.RecordBookingCreated()
	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"customer_id", customerID,
		"artist_id", input.ArtistID,
	)

	s.sendNotification(ctx, booking, customer, artist)

	return booking, nil
}

// sendNotification はアーティストへの予約通知をベストエフォートで送信する。
// 失敗はログとメトリクスに記録するだけで、呼び出し元には伝播しない。
func (s *Service) sendNotification(ctx context.Context, booking *model.Booking, customer, artist *model.User) {
	n := &notify.BookingNotification{
		ArtistEmail:     artist.Email,
		ArtistName:      artist.FullName,
		CustomerName:    customer.FullName,
		CustomerEmail:   customer.Email,
		AppointmentDate: booking.AppointmentDate,
		AppointmentTime: booking.AppointmentTime,
		Service:         booking.ServiceName,
		Location:        booking.Location,
		Notes:           booking.Notes,
	}
	if err := s.notifier.SendBookingNotification(ctx, n); err != nil {
		s.collector.RecordNotificationFailure()
		s.logger.Warn("failed to send booking notification",
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

// ListForCustomer はクライアント自身の予約一覧を返す。
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer bookings: %w", err)
	}
	return bookings, nil
}

// ListForArtist はアーティスト宛の予約一覧を返す。
func (s *Service) ListForArtist(ctx context.Context, artistID string) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListByArtistID(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artist bookings: %w", err)
	}
	return bookings, nil
}

// UpdateStatus は予約ステータスを遷移させる。
// 予約の宛先アーティスト本人のみが操作でき、許可された遷移のみ受け付ける。
func (s *Service) UpdateStatus(ctx context.Context, actorID, bookingID string, next model.BookingStatus) (*model.Booking, error) {
	switch next {
	case model.BookingStatusConfirmed, model.BookingStatusCompleted, model.BookingStatusCancelled:
	default:
		return nil, model.NewInvalidTransitionError("", next)
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	if booking == nil {
		return nil, model.NewBookingNotFoundError(bookingID)
	}

	if booking.ArtistID != actorID {
		return nil, model.NewForbiddenError()
	}

	if !booking.Status.CanTransitionTo(next) {
		return nil, model.NewInvalidTransitionError(booking.Status, next)
	}

	if err := s.bookings.UpdateStatus(ctx, bookingID, next); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	s.collector.RecordBookingStatusChange(string(next))
	s.logger.Info("booking status updated",
		"booking_id", bookingID,
		"from", booking.Status,
		"to", next,
	)

	booking.Status = next
	return booking, nil
}

// validateCreateInput は予約作成入力を検証する。DBアクセスは行わない。
func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.ArtistID) == "" {
		return model.NewMissingFieldError("artist_id")
	}
	if strings.TrimSpace(input.ServiceName) == "" {
		return model.NewMissingFieldError("service_name")
	}
	if input.AppointmentDate == "" {
		return model.NewMissingFieldError("appointment_date")
	}
	if input.AppointmentTime == "" {
		return model.NewMissingFieldError("appointment_time")
	}
	if !datePattern.MatchString(input.AppointmentDate) {
		return model.NewMissingFieldError("appointment_date")
	}
	if _, err := time.Parse("2006-01-02", input.AppointmentDate); err != nil {
		return model.NewMissingFieldError("appointment_date")
	}
	if !timePattern.MatchString(input.AppointmentTime) {
		return model.NewMissingFieldError("appointment_time")
	}
	if _, err := time.Parse("15:04", input.AppointmentTime); err != nil {
		return model.NewMissingFieldError("appointment_time")
	}
	return nil
}
