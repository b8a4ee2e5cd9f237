package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectInvoice   = "invoice"
	ObjectSettings  = "settings"
	ObjectDashboard = "dashboard"
	ObjectAccount   = "account"
)

const (
	ActionInvoiceView    = "invoice.view"
	ActionInvoiceCreate  = "invoice.create"
	ActionInvoiceUpdate  = "invoice.update"
	ActionInvoiceExport  = "invoice.export"
	ActionInvoiceViewAll = "invoice.view_all"

	ActionSettingsView   = "settings.view"
	ActionSettingsUpdate = "settings.update"

	ActionDashboardView = "dashboard.view"

	ActionAccountReview = "account.review"
	ActionAccountManage = "account.manage"
)

const (
	roleUser       = "role:user"
	roleAdmin      = "role:admin"
	roleSuperAdmin = "role:superadmin"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID snowflake.ID, role string, object string, action string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("user:%s", userID.String())
	if err := s.ensureGrouping(subject, "role:"+role); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Allowed(ctx context.Context, userID snowflake.ID, role string, object string, action string) bool {
	return s.Authorize(ctx, userID, role, object, action) == nil
}

// ensureGrouping keeps exactly one role link per subject, following role
// changes made by a superadmin.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleUser, ObjectInvoice, ActionInvoiceView},
		{roleUser, ObjectInvoice, ActionInvoiceCreate},
		{roleUser, ObjectInvoice, ActionInvoiceUpdate},
		{roleUser, ObjectInvoice, ActionInvoiceExport},
		{roleUser, ObjectSettings, ActionSettingsView},
		{roleUser, ObjectSettings, ActionSettingsUpdate},

		{roleAdmin, ObjectInvoice, ActionInvoiceViewAll},
		{roleAdmin, ObjectDashboard, ActionDashboardView},

		{roleSuperAdmin, ObjectAccount, ActionAccountReview},
		{roleSuperAdmin, ObjectAccount, ActionAccountManage},
	}
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	inheritance := [][]string{
		{roleAdmin, roleUser},
		{roleSuperAdmin, roleAdmin},
	}
	for _, link := range inheritance {
		has, err := enforcer.HasGroupingPolicy(link)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(link); err != nil {
			return err
		}
	}
	return nil
}
