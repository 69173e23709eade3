package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/artspace/internal/model"
)

// PostgresBookingRepo はPostgreSQLを使用した予約リポジトリ。
type PostgresBookingRepo struct {
	db *sql.DB
}

// NewPostgresBookingRepo はPostgresBookingRepoを生成する。
func NewPostgresBookingRepo(db *sql.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: db}
}

const bookingColumns = `id, customer_id, artist_id, service_name,
	to_char(appointment_date, 'YYYY-MM-DD'), appointment_time,
	location, notes, status, total_amount, created_at`

// Create は予約を作成する。ステータスは作成時点でpendingに既定される。
func (r *PostgresBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	var totalAmount sql.NullFloat64
	if booking.TotalAmount != nil {
		totalAmount = sql.NullFloat64{Float64: *booking.TotalAmount, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings
		     (id, customer_id, artist_id, service_name, appointment_date, appointment_time,
		      location, notes, status, total_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11)`,
		booking.ID, booking.CustomerID, booking.ArtistID, booking.ServiceName,
		booking.AppointmentDate, booking.AppointmentTime,
		booking.Location, booking.Notes, booking.Status, totalAmount, booking.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
func (r *PostgresBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return booking, nil
}

// ListByCustomerID はクライアントの予約一覧を作成日時降順で返す。
func (r *PostgresBookingRepo) ListByCustomerID(ctx context.Context, customerID string) ([]*model.Booking, error) {
	return r.list(ctx, `customer_id`, customerID)
}

// ListByArtistID はアーティスト宛の予約一覧を作成日時降順で返す。
func (r *PostgresBookingRepo) ListByArtistID(ctx context.Context, artistID string) ([]*model.Booking, error) {
	return r.list(ctx, `artist_id`, artistID)
}

func (r *PostgresBookingRepo) list(ctx context.Context, column, id string) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+column+` = $1 ORDER BY created_at DESC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking := &model.Booking{}
		var totalAmount sql.NullFloat64
		if err := rows.Scan(
			&booking.ID, &booking.CustomerID, &booking.ArtistID, &booking.ServiceName,
			&booking.AppointmentDate, &booking.AppointmentTime,
			&booking.Location, &booking.Notes, &booking.Status, &totalAmount, &booking.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		if totalAmount.Valid {
			amount := totalAmount.Float64
			booking.TotalAmount = &amount
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}

	return bookings, nil
}

// UpdateStatus は予約のステータスを更新する。
func (r *PostgresBookingRepo) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $2 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("booking not found: %s", id)
	}
	return nil
}

func scanBooking(row *sql.Row) (*model.Booking, error) {
	booking := &model.Booking{}
	var totalAmount sql.NullFloat64
	err := row.Scan(
		&booking.ID, &booking.CustomerID, &booking.ArtistID, &booking.ServiceName,
		&booking.AppointmentDate, &booking.AppointmentTime,
		&booking.Location, &booking.Notes, &booking.Status, &totalAmount, &booking.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if totalAmount.Valid {
		amount := totalAmount.Float64
		booking.TotalAmount = &amount
	}
	return booking, nil
}

// compile-time interface check
var _ BookingRepository = (*PostgresBookingRepo)(nil)
