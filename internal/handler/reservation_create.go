package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/config"
	"github.com/hotelhq/room-reservation/internal/model"
	"github.com/hotelhq/room-reservation/internal/queue"
	"github.com/hotelhq/room-reservation/internal/repository"
	queue_publisher "github.com/hotelhq/room-reservation/internal/service"
)

// ReservationHandler groups the repositories behind the reservation
// endpoints.  All methods assume JWT authentication and role validation
// have already run; the booking path executes entirely inside a single
// transaction so the admission check and the insert commit atomically.
type ReservationHandler struct {
	Cfg          config.Config
	Reservations *repository.ReservationRepo
	Payments     *repository.PaymentRepo
	Rooms        *repository.RoomRepo
	Guests       *repository.GuestRepo
	Sequences    *repository.SequenceRepo
}

// NewReservationHandler constructs a ReservationHandler.  All dependencies
// must be non-nil.
func NewReservationHandler(cfg config.Config, res *repository.ReservationRepo, pay *repository.PaymentRepo,
	rooms *repository.RoomRepo, guests *repository.GuestRepo, seq *repository.SequenceRepo) *ReservationHandler {
	if res == nil || pay == nil || rooms == nil || guests == nil || seq == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{
		Cfg:          cfg,
		Reservations: res,
		Payments:     pay,
		Rooms:        rooms,
		Guests:       guests,
		Sequences:    seq,
	}
}

type createReservationReq struct {
	GuestID         uint64 `json:"guest_id"`
	RoomID          uint64 `json:"room_id"`
	CheckInDate     string `json:"check_in_date"`
	CheckOutDate    string `json:"check_out_date"`
	Adults          int    `json:"adults"`
	Children        int    `json:"children"`
	Infants         int    `json:"infants"`
	RoomRateCents   *int64 `json:"room_rate_cents"`
	Status          string `json:"status"`
	Source          string `json:"source"`
	Notes           string `json:"notes"`
	SpecialRequests string `json:"special_requests"`
}

// Create handles POST /v1/reservations.  It runs the full admission check
// (guest blacklist gate, room bookability, capacity, overlap) while holding
// a lock on the room row, so two concurrent bookings for the same room
// serialize instead of both passing the overlap check.  Overlap conflicts
// come back as 409 with the blocking reservations listed.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.GuestID == 0 || req.RoomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_id and room_id are required"})
	}
	checkIn, err := parseDate(req.CheckInDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in_date"})
	}
	checkOut, err := parseDate(req.CheckOutDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out_date"})
	}
	if err := model.ValidateStay(checkIn, checkOut); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.Adults < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one adult is required"})
	}
	status := model.StatusPending
	if req.Status != "" {
		status = model.Status(req.Status)
		if status != model.StatusPending && status != model.StatusConfirmed {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be pending or confirmed"})
		}
	}

	ctx := c.Request().Context()
	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	guest, err := h.Guests.GetByIDTx(ctx, tx, req.GuestID, hotelID)
	if err != nil {
		if err == repository.ErrGuestNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "guest not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if guest.IsBlacklisted {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "guest is blacklisted",
			"reason": guest.BlacklistReason,
		})
	}

	// Lock the room row before the overlap check; this serializes admission
	// per room for the duration of the transaction.
	room, err := h.Rooms.GetForUpdateTx(ctx, tx, req.RoomID, hotelID)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !room.Bookable() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is not available for booking", "room_status": room.Status})
	}
	occupancy := req.Adults + req.Children + req.Infants
	if occupancy > room.MaxOccupancy {
		capErr := &model.CapacityError{MaxOccupancy: room.MaxOccupancy, Requested: occupancy}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": capErr.Error()})
	}

	conflicts, err := h.Reservations.FindOverlappingTx(ctx, tx, req.RoomID, checkIn, checkOut, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check availability"})
	}
	if len(conflicts) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "room is already booked for the requested dates",
			"conflicts": conflicts,
		})
	}

	now := time.Now().UTC()
	seq, err := h.Sequences.NextTx(ctx, tx, repository.ScopeReservation, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate reservation number"})
	}

	rate := room.BaseRateCents
	if req.RoomRateCents != nil {
		if *req.RoomRateCents < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_rate_cents must be non-negative"})
		}
		rate = *req.RoomRateCents
	}
	nights := model.Nights(checkIn, checkOut)
	source := req.Source
	if source == "" {
		source = "direct"
	}

	res := &model.Reservation{
		ReservationNumber: repository.FormatReservationNumber(now, seq),
		HotelID:           hotelID,
		GuestID:           req.GuestID,
		RoomID:            req.RoomID,
		CreatedBy:         userID,
		CheckInDate:       checkIn,
		CheckOutDate:      checkOut,
		Adults:            req.Adults,
		Children:          req.Children,
		Infants:           req.Infants,
		RoomRateCents:     rate,
		TotalAmountCents:  model.ComputeTotal(rate, nights, 0, 0, 0),
		Currency:          h.Cfg.Currency,
		Status:            status,
		PaymentStatus:     model.PayPending,
		Source:            source,
		Notes:             req.Notes,
		SpecialRequests:   req.SpecialRequests,
	}
	if err := h.Reservations.CreateTx(ctx, tx, res); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation number collision, retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}
	if err := h.Guests.BumpStayTx(ctx, tx, req.GuestID, checkIn); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update guest record"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if res.Status == model.StatusConfirmed {
		h.publishConfirmed(res, guest.FullName(), room.Number, userID)
	}

	return c.JSON(http.StatusCreated, echo.Map{"reservation": res})
}

// publishConfirmed emits the confirmation event on a detached context so a
// slow or unreachable broker never delays or fails the request that caused
// it.
func (h *ReservationHandler) publishConfirmed(res *model.Reservation, guestName, roomNumber string, actor uint64) {
	ev := queue.ReservationConfirmedEvent{
		ReservationID:     res.ID,
		ReservationNumber: res.ReservationNumber,
		HotelID:           res.HotelID,
		GuestID:           res.GuestID,
		GuestName:         guestName,
		RoomID:            res.RoomID,
		RoomNumber:        roomNumber,
		CheckInDate:       res.CheckInDate.Format("2006-01-02"),
		CheckOutDate:      res.CheckOutDate.Format("2006-01-02"),
		Nights:            model.Nights(res.CheckInDate, res.CheckOutDate),
		TotalAmountCents:  res.TotalAmountCents,
		Currency:          res.Currency,
		ConfirmedBy:       actor,
		ConfirmedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishReservationConfirmed(ctx, ev)
	}()
}
