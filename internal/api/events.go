package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/internal/models"
)

const eventSelect = `SELECT id, user_id, community_id, title, description, location, type,
       date, start_time, end_time, created_at, updated_at
  FROM events`

func scanEvent(row pgx.Row) (models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.UserID, &e.CommunityID, &e.Title, &e.Description, &e.Location, &e.Type,
		&e.Date, &e.StartTime, &e.EndTime, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Server) listEvents(c *gin.Context, query string, args ...any) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("list_events_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch events")
		return
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch events")
			return
		}
		events = append(events, e)
	}

	c.JSON(http.StatusOK, events)
}

func (s *Server) getEvents(c *gin.Context) {
	s.listEvents(c, eventSelect+` ORDER BY start_time ASC`)
}

func (s *Server) getCommunityEvents(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}
	s.listEvents(c, eventSelect+` WHERE community_id = $1 ORDER BY start_time ASC`, id)
}

type createEventRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	Type        *string    `json:"type"`
	Date        time.Time  `json:"date" binding:"required"`
	StartTime   time.Time  `json:"start_time" binding:"required"`
	EndTime     *time.Time `json:"end_time"`
	CommunityID *int64     `json:"community_id"`
}

func (s *Server) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "title, date and start_time are required")
		return
	}
	if req.EndTime != nil && req.EndTime.Before(req.StartTime) {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "end_time must not be before start_time")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var id int64
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO events (user_id, community_id, title, description, location, type, date, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		currentUserID(c), req.CommunityID, req.Title, req.Description, req.Location, req.Type,
		req.Date, req.StartTime, req.EndTime,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			errJSON(c, http.StatusBadRequest, "invalid_community", "community does not exist")
			return
		}
		s.log.Error("create_event_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create event")
		return
	}

	event, err := scanEvent(s.db.Pool.QueryRow(ctx, eventSelect+` WHERE id = $1`, id))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create event")
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (s *Server) getEventByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "event id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	event, err := scanEvent(s.db.Pool.QueryRow(ctx, eventSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "event_not_found", "event not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch event")
		return
	}

	c.JSON(http.StatusOK, event)
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	Type        *string    `json:"type"`
	Date        *time.Time `json:"date"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

func (s *Server) updateEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "event id must be a positive integer")
		return
	}

	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "request body must be valid JSON")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE events SET
			title       = COALESCE($3, title),
			description = COALESCE($4, description),
			location    = COALESCE($5, location),
			type        = COALESCE($6, type),
			date        = COALESCE($7, date),
			start_time  = COALESCE($8, start_time),
			end_time    = COALESCE($9, end_time),
			updated_at  = now()
		 WHERE id = $1 AND user_id = $2`,
		id, currentUserID(c), req.Title, req.Description, req.Location, req.Type,
		req.Date, req.StartTime, req.EndTime)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update event")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "event_not_found", "event not found or not yours")
		return
	}

	event, err := scanEvent(s.db.Pool.QueryRow(ctx, eventSelect+` WHERE id = $1`, id))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch event")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (s *Server) deleteEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "event id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM events WHERE id = $1 AND user_id = $2`, id, currentUserID(c))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to delete event")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "event_not_found", "event not found or not yours")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event deleted successfully"})
}

func (s *Server) getEventAttendees(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "event id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx,
		`SELECT u.id, u.username, u.profile_picture
		 FROM event_attendees ea
		 JOIN users u ON u.id = ea.user_id
		 WHERE ea.event_id = $1
		 ORDER BY u.username`, id)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch attendees")
		return
	}
	defer rows.Close()

	attendees := make([]models.PublicUser, 0)
	for rows.Next() {
		var u models.PublicUser
		if err := rows.Scan(&u.ID, &u.Username, &u.ProfilePicture); err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch attendees")
			return
		}
		attendees = append(attendees, u)
	}

	c.JSON(http.StatusOK, attendees)
}

func (s *Server) addEventAttendee(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "event id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var att models.EventAttendee
	err = s.db.Pool.QueryRow(ctx,
		`INSERT INTO event_attendees (user_id, event_id) VALUES ($1, $2)
		 RETURNING user_id, event_id, created_at`,
		currentUserID(c), id,
	).Scan(&att.UserID, &att.EventID, &att.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				errJSON(c, http.StatusConflict, "already_attending", "already attending this event")
				return
			case "23503":
				errJSON(c, http.StatusNotFound, "event_not_found", "event not found")
				return
			}
		}
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to join event")
		return
	}

	c.JSON(http.StatusCreated, att)
}

func (s *Server) removeEventAttendee(c *gin.Context) {
	eventID, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "event id must be a positive integer")
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "user id must be a positive integer")
		return
	}

	if userID != currentUserID(c) {
		errJSON(c, http.StatusForbidden, "forbidden", "cannot remove another attendee")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM event_attendees WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to leave event")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "attendance_not_found", "not attending this event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "no longer attending"})
}
