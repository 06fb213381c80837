package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/internlink/backend/internal/logger"
)

// StartResult is the outcome of StartCourse. Started is false when the
// course had already been started, in which case Award is nil.
type StartResult struct {
	Progress CourseProgress `json:"progress"`
	Started  bool           `json:"started"`
	Award    *AwardResult   `json:"award,omitempty"`
}

// CompletionResult is the outcome of CompleteCourse. A rejected attempt
// has Admitted false and changes nothing.
type CompletionResult struct {
	Admitted bool            `json:"admitted"`
	Progress *CourseProgress `json:"progress,omitempty"`
	Award    *AwardResult    `json:"award,omitempty"`
}

// ProgressResult is the outcome of UpdateProgress. Completion is set when
// the update reached 100% and was routed through CompleteCourse.
type ProgressResult struct {
	Progress   *CourseProgress   `json:"progress,omitempty"`
	Completion *CompletionResult `json:"completion,omitempty"`
}

// CourseService drives the per-user course lifecycle
// not_started → in_progress → completed and awards XP on each transition.
type CourseService struct {
	engine *Engine
	store  Store
	guard  *CompletionGuard
	log    *logger.Logger
}

func NewCourseService(engine *Engine, guard *CompletionGuard) *CourseService {
	return &CourseService{
		engine: engine,
		store:  engine.store,
		guard:  guard,
		log:    engine.log.With("component", "courses"),
	}
}

func (s *CourseService) activeCourse(ctx context.Context, courseID uuid.UUID) (*Course, error) {
	c, err := s.store.GetCourse(ctx, courseID)
	if errors.Is(err, ErrNotFound) || (err == nil && !c.IsActive) {
		return nil, invalid("course_id", ErrUnknownCourse)
	}
	if err != nil {
		return nil, persistErr("get course", err)
	}
	return c, nil
}

// ListCourses returns the active catalog joined with the user's progress.
func (s *CourseService) ListCourses(ctx context.Context, userID uuid.UUID) ([]CourseWithProgress, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id", ErrInvalidUser)
	}
	courses, err := s.store.ListActiveCourses(ctx)
	if err != nil {
		return nil, persistErr("list courses", err)
	}
	progress, err := s.store.ListCourseProgress(ctx, userID)
	if err != nil {
		return nil, persistErr("list course progress", err)
	}
	byCourse := make(map[uuid.UUID]CourseProgress, len(progress))
	for _, p := range progress {
		byCourse[p.CourseID] = p
	}
	out := make([]CourseWithProgress, 0, len(courses))
	for _, c := range courses {
		cw := CourseWithProgress{Course: c}
		if p, ok := byCourse[c.ID]; ok {
			cw.Progress = &p
		}
		out = append(out, cw)
	}
	return out, nil
}

// StartCourse moves a course to in_progress and awards the start XP. It is
// idempotent: starting a course already started or completed returns its
// current state without awarding anything.
func (s *CourseService) StartCourse(ctx context.Context, userID, courseID uuid.UUID) (*StartResult, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id", ErrInvalidUser)
	}
	course, err := s.activeCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	e := s.engine
	var res StartResult
	err = e.withUser(userID, func() error {
		return s.store.WithinTx(ctx, func(tx Store) error {
			now := e.now().UTC()
			if _, err := e.lockProgression(ctx, tx, userID, now); err != nil {
				return err
			}
			cp, err := tx.GetCourseProgress(ctx, userID, courseID)
			switch {
			case errors.Is(err, ErrNotFound):
			case err != nil:
				return fmt.Errorf("get course progress: %w", err)
			case cp.Status != CourseNotStarted:
				res.Progress = *cp
				return nil
			}

			p := CourseProgress{
				UserID:    userID,
				CourseID:  courseID,
				Status:    CourseInProgress,
				StartedAt: &now,
				UpdatedAt: now,
			}
			if err := tx.SaveCourseProgress(ctx, &p); err != nil {
				return fmt.Errorf("save course progress: %w", err)
			}
			award, err := e.awardTx(ctx, tx, userID, e.XPFor(ActivityCourseStarted), ActivityCourseStarted,
				"Started course: "+course.Title, &courseID)
			if err != nil {
				return err
			}
			res = StartResult{Progress: p, Started: true, Award: award}
			return nil
		})
	})
	if err != nil {
		s.log.Error("start course failed", "user_id", userID, "course_id", courseID, "error", err)
		return nil, persistErr("start course", err)
	}

	if res.Started {
		s.log.Info("course started", "user_id", userID, "course_id", courseID)
		e.notifyAward(ctx, res.Award)
		e.notifier.Notify(ctx, userID, courseStartedNotification(*course, res.Award.Activity.XPEarned))
	}
	return &res, nil
}

// UpdateProgress records progress on a course. 100% routes through
// CompleteCourse. A completed course is terminal and is returned unchanged.
func (s *CourseService) UpdateProgress(ctx context.Context, userID, courseID uuid.UUID, pct int) (*ProgressResult, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id", ErrInvalidUser)
	}
	if pct < 0 || pct > 100 {
		return nil, invalid("progress_percentage", ErrInvalidProgress)
	}
	if pct == 100 {
		comp, err := s.CompleteCourse(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
		return &ProgressResult{Progress: comp.Progress, Completion: comp}, nil
	}
	if _, err := s.activeCourse(ctx, courseID); err != nil {
		return nil, err
	}

	e := s.engine
	unlock := e.users.Lock(userID.String())
	defer unlock()
	var out CourseProgress
	err := s.store.WithinTx(ctx, func(tx Store) error {
		now := e.now().UTC()
		if _, err := e.lockProgression(ctx, tx, userID, now); err != nil {
			return err
		}
		cp, err := tx.GetCourseProgress(ctx, userID, courseID)
		switch {
		case errors.Is(err, ErrNotFound):
			cp = &CourseProgress{UserID: userID, CourseID: courseID, StartedAt: &now}
		case err != nil:
			return fmt.Errorf("get course progress: %w", err)
		case cp.Status == CourseCompleted:
			out = *cp
			return nil
		}
		if cp.StartedAt == nil {
			cp.StartedAt = &now
		}
		cp.Status = CourseInProgress
		cp.ProgressPercentage = pct
		cp.UpdatedAt = now
		out = *cp
		return tx.SaveCourseProgress(ctx, cp)
	})
	if err != nil {
		return nil, persistErr("update course progress", err)
	}
	return &ProgressResult{Progress: &out}, nil
}

// CompleteCourse completes a course and awards the completion XP exactly
// once. Concurrent or repeated attempts are rejected with Admitted false.
func (s *CourseService) CompleteCourse(ctx context.Context, userID, courseID uuid.UUID) (*CompletionResult, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id", ErrInvalidUser)
	}
	course, err := s.activeCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	e := s.engine
	ctx, span := e.tracer.Start(ctx, "gamification.CompleteCourse", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("course.id", courseID.String()),
	))
	defer span.End()

	release, admitted, err := s.guard.TryComplete(ctx, userID, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "guard failed")
		e.notifier.Notify(ctx, userID, courseFailedNotification())
		return nil, err
	}
	if !admitted {
		span.SetAttributes(attribute.Bool("completion.admitted", false))
		return s.rejected(ctx, userID, courseID), nil
	}
	defer release()

	var res CompletionResult
	err = e.withUser(userID, func() error {
		return s.store.WithinTx(ctx, func(tx Store) error {
			now := e.now().UTC()
			// The row lock comes first so a completion committed by another
			// process is visible to the status check below.
			if _, err := e.lockProgression(ctx, tx, userID, now); err != nil {
				return err
			}
			cp, err := tx.GetCourseProgress(ctx, userID, courseID)
			switch {
			case errors.Is(err, ErrNotFound):
				cp = &CourseProgress{UserID: userID, CourseID: courseID, StartedAt: &now}
			case err != nil:
				return fmt.Errorf("get course progress: %w", err)
			case cp.Status == CourseCompleted:
				return errAlreadyCompleted
			}
			if cp.StartedAt == nil {
				cp.StartedAt = &now
			}
			cp.Status = CourseCompleted
			cp.ProgressPercentage = 100
			cp.CompletedAt = &now
			cp.UpdatedAt = now
			if err := tx.SaveCourseProgress(ctx, cp); err != nil {
				return fmt.Errorf("save course progress: %w", err)
			}
			award, err := e.awardTx(ctx, tx, userID, e.XPFor(ActivityCourseCompletion), ActivityCourseCompletion,
				"Completed course: "+course.Title, &courseID)
			if err != nil {
				return err
			}
			res = CompletionResult{Admitted: true, Progress: cp, Award: award}
			return nil
		})
	})

	if errors.Is(err, errAlreadyCompleted) {
		span.SetAttributes(attribute.Bool("completion.admitted", false))
		return s.rejected(ctx, userID, courseID), nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		s.log.Error("complete course failed", "user_id", userID, "course_id", courseID, "error", err)
		e.notifier.Notify(ctx, userID, courseFailedNotification())
		return nil, persistErr("complete course", err)
	}

	span.SetAttributes(attribute.Bool("completion.admitted", true))
	s.log.Info("course completed", "user_id", userID, "course_id", courseID,
		"total_xp", res.Award.Progression.TotalXP)
	e.notifyAward(ctx, res.Award)
	e.notifier.Notify(ctx, userID, courseCompletedNotification(*course, res.Award.Activity.XPEarned))
	return &res, nil
}

func (s *CourseService) rejected(ctx context.Context, userID, courseID uuid.UUID) *CompletionResult {
	res := &CompletionResult{Admitted: false}
	if cp, err := s.store.GetCourseProgress(ctx, userID, courseID); err == nil {
		res.Progress = cp
	}
	s.log.Debug("completion rejected", "user_id", userID, "course_id", courseID)
	return res
}
