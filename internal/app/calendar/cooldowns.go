package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CooldownView is a user's effective move cooldown.
type CooldownView struct {
	UserID   string `json:"userId"`
	Minutes  int    `json:"minutes"`
	Override bool   `json:"override"`
	Default  int    `json:"default"`
	Options  []int  `json:"options"`
}

// CooldownFor reports the cooldown that applies to userID.
func (e *Engine) CooldownFor(ctx context.Context, userID primitive.ObjectID) (CooldownView, error) {
	setting, ok, err := e.Cooldowns.Get(ctx, userID)
	if err != nil {
		return CooldownView{}, fmt.Errorf("load cooldown: %w", err)
	}
	v := CooldownView{
		UserID:   userID.Hex(),
		Minutes:  e.Cooldown.Default(),
		Default:  e.Cooldown.Default(),
		Options:  models.CooldownOptions,
		Override: ok,
	}
	if ok {
		v.Minutes = setting.Minutes
	}
	return v, nil
}

// SetCooldown stores an override for userID. Only admins may set one.
func (e *Engine) SetCooldown(ctx context.Context, actor models.Actor, userID primitive.ObjectID, req CooldownRequest) (view CooldownView, err error) {
	defer func(start time.Time) { err = e.finish("set_cooldown", start, err) }(time.Now())

	if err := requireAdmin(actor); err != nil {
		return CooldownView{}, err
	}
	if !models.ValidCooldownMinutes(req.Minutes) {
		return CooldownView{}, apierr.BadRequest(CodeInvalidMinutes, "minutes must be one of 0, 2, 5 or 10").
			With("options", models.CooldownOptions)
	}
	if _, err := e.Cooldowns.Set(ctx, userID, req.Minutes, actor.ID); err != nil {
		return CooldownView{}, fmt.Errorf("set cooldown: %w", err)
	}
	e.Cooldown.Invalidate(userID)
	e.Audit.CooldownSet(ctx, actor, userID, req.Minutes)
	return e.CooldownFor(ctx, userID)
}

// ClearCooldown removes the override for userID.
func (e *Engine) ClearCooldown(ctx context.Context, actor models.Actor, userID primitive.ObjectID) (view CooldownView, err error) {
	defer func(start time.Time) { err = e.finish("clear_cooldown", start, err) }(time.Now())

	if err := requireAdmin(actor); err != nil {
		return CooldownView{}, err
	}
	if err := e.Cooldowns.Clear(ctx, userID, actor.ID); err != nil {
		return CooldownView{}, fmt.Errorf("clear cooldown: %w", err)
	}
	e.Cooldown.Invalidate(userID)
	e.Audit.CooldownCleared(ctx, actor, userID)
	return e.CooldownFor(ctx, userID)
}
