package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hamsterhub/internal/interfaces"
	"hamsterhub/internal/models"
	"hamsterhub/internal/pkg/caching"

	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"go.uber.org/zap"
)

type ServiceAdmin struct {
	container *do.Injector
	cache     caching.Cache

	adminIDs     map[string]bool
	guildID      string
	adminRoleIDs map[string]bool

	roles         interfaces.RoleResolver
	serviceConfig *ServiceConfig
	webhook       *AuditWebhook
}

func NewServiceAdmin(container *do.Injector) (*ServiceAdmin, error) {
	vs, err := do.InvokeNamed[map[string]string](container, "envs")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	webhook, err := do.Invoke[*AuditWebhook](container)
	if err != nil {
		return nil, err
	}

	return &ServiceAdmin{
		container:     container,
		cache:         cache,
		adminIDs:      ParseIDSet(vs["ADMIN_IDS"]),
		guildID:       vs["DISCORD_GUILD_ID"],
		adminRoleIDs:  ParseIDSet(vs["DISCORD_ADMIN_ROLE_IDS"]),
		roles:         bot,
		serviceConfig: serviceConfig,
		webhook:       webhook,
	}, nil
}

// ParseIDSet splits a comma or whitespace separated list of snowflakes.
func ParseIDSet(s string) map[string]bool {
	ids := map[string]bool{}
	for _, id := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	}) {
		ids[id] = true
	}
	return ids
}

func hasAnyRole(roles []string, wanted map[string]bool) bool {
	for _, role := range roles {
		if wanted[role] {
			return true
		}
	}
	return false
}

func (service *ServiceAdmin) IsAdmin(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	if service.adminIDs[userID] {
		return true
	}

	configured, _ := service.serviceConfig.GetStringConfig(ctx, CONFIG_ADMIN_IDS, "")
	if ParseIDSet(configured)[userID] {
		return true
	}

	if service.guildID == "" || len(service.adminRoleIDs) == 0 {
		return false
	}

	roles, err := service.memberRoles(ctx, userID)
	if err != nil {
		zap.S().Debugw("guild role lookup", "user", userID, "err", err)
		return false
	}

	return hasAnyRole(roles, service.adminRoleIDs)
}

func (service *ServiceAdmin) memberRoles(ctx context.Context, userID string) ([]string, error) {
	callback := func() ([]string, error) {
		return service.roles.MemberRoles(ctx, service.guildID, userID)
	}

	return caching.UseCache(ctx, service.cache, DBKeyMemberRoles(service.guildID, userID), CACHE_TTL_5_MINS, callback)
}

// LookupUser returns a member with balances and admin flag.
func (service *ServiceAdmin) LookupUser(ctx context.Context, userID string) (*models.User, error) {
	serviceUser, err := do.Invoke[*ServiceUser](service.container)
	if err != nil {
		return nil, err
	}

	user, err := serviceUser.FindUserByIDNoCache(ctx, userID)
	if err != nil {
		return nil, err
	}

	return serviceUser.Me(ctx, user)
}

type AdjustBalanceInput struct {
	UserID   string          `json:"user_id" validate:"required"`
	Currency models.Currency `json:"currency" validate:"required"`
	Amount   int64           `json:"amount" validate:"gt=0"`
	Reason   string          `json:"reason" validate:"max=200"`

	// ActionKey makes a repeated adjustment a no-op; empty means a fresh key per call.
	ActionKey string `json:"-"`
}

// GrantCurrency credits a known member.
func (service *ServiceAdmin) GrantCurrency(ctx context.Context, admin *models.User, input *AdjustBalanceInput) (*models.Account, error) {
	return service.adjust(ctx, admin, input, false)
}

func (service *ServiceAdmin) DeductCurrency(ctx context.Context, admin *models.User, input *AdjustBalanceInput) (*models.Account, error) {
	return service.adjust(ctx, admin, input, true)
}

func (service *ServiceAdmin) adjust(ctx context.Context, admin *models.User, input *AdjustBalanceInput, deduct bool) (*models.Account, error) {
	if !input.Currency.Valid() {
		return nil, errorx.Wrap(models.ErrUnknownCurrency, errorx.Validation)
	}

	serviceUser, err := do.Invoke[*ServiceUser](service.container)
	if err != nil {
		return nil, err
	}

	if _, err := serviceUser.FindUserByIDNoCache(ctx, input.UserID); err != nil {
		return nil, errorx.Wrap(err, errorx.Database)
	}

	serviceCurrency, err := do.Invoke[*ServiceCurrency](service.container)
	if err != nil {
		return nil, err
	}

	key := input.ActionKey
	if key == "" {
		key = uuid.NewString()
	}
	action := models.AdminAction(key)
	var account *models.Account
	if deduct {
		account, err = serviceCurrency.Debit(ctx, input.UserID, input.Currency, input.Amount, action)
	} else {
		account, err = serviceCurrency.Credit(ctx, input.UserID, input.Currency, input.Amount, action)
	}
	if err != nil {
		return nil, err
	}

	title, color, amount := "Currency granted", AUDIT_COLOR_SUCCESS, input.Amount
	if deduct {
		title, color, amount = "Currency deducted", AUDIT_COLOR_WARNING, -input.Amount
	}

	fields := []AuditField{
		{Name: "Admin", Value: fmt.Sprintf("<@%s>", admin.ID), Inline: true},
		{Name: "Member", Value: fmt.Sprintf("<@%s>", input.UserID), Inline: true},
		{Name: "Amount", Value: fmt.Sprintf("%+d %s", amount, input.Currency), Inline: true},
	}
	if input.Reason != "" {
		fields = append(fields, AuditField{Name: "Reason", Value: input.Reason})
	}

	service.webhook.Announce(ctx, &AuditEvent{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	return account, nil
}

// CancelTask force-cancels an open task and refunds its poster.
func (service *ServiceAdmin) CancelTask(ctx context.Context, admin *models.User, taskID string) (*models.Task, error) {
	serviceTask, err := do.Invoke[*ServiceTask](service.container)
	if err != nil {
		return nil, err
	}

	return serviceTask.Cancel(ctx, taskID, admin, true)
}
