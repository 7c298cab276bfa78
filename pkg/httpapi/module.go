package httpapi

import (
	"creditshop/pkg/config"
	"creditshop/pkg/health"
	"creditshop/pkg/identity"
	"creditshop/pkg/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewEngine),
)

// Routers is what each service's handler mounts its routes on. Public has no
// auth; Protected requires a bearer token and a matching access policy.
type Routers struct {
	Public    *gin.RouterGroup
	Protected *gin.RouterGroup
}

type Route interface {
	Register(r Routers)
}

// AsRoute annotates a handler constructor so it joins the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

type Params struct {
	fx.In
	Config   *config.Config
	Health   health.HealthService
	Identity *identity.Service
	Enforcer *casbin.Enforcer
	Routes   []Route `group:"routes"`
}

func NewEngine(p Params) *gin.Engine {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Error())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)
	r.GET("/metrics", p.Health.Metrics)

	routers := Routers{
		Public:    r.Group("/api"),
		Protected: r.Group("/api", middleware.Authenticate(p.Identity), middleware.Authorize(p.Enforcer)),
	}
	for _, route := range p.Routes {
		route.Register(routers)
	}

	return r
}
