package auth

import (
	"github.com/smallbiznis/invoicely/internal/auth/repository"
	"github.com/smallbiznis/invoicely/internal/auth/service"
	"github.com/smallbiznis/invoicely/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
