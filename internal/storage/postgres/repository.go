package postgres

import (
	"reliefbridge/internal/service"
)

var (
	_ service.Persistence      = (*HelpRequests)(nil)
	_ service.IdentityProvider = (*Users)(nil)
)

func (p *Postgres) Persistence() service.Persistence    { return p.Requests }
func (p *Postgres) Identity() service.IdentityProvider { return p.Users }
