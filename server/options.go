package server

import (
	"log/slog"

	"github.com/stablewatch/premiums/server/config"
	"github.com/stablewatch/premiums/storage/types"
)

type Option func(s *Server)

// WithLogger specifies the logger for the server
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithConfig specifies the config for the server
func WithConfig(c *config.Config) Option {
	return func(s *Server) {
		s.config = c
	}
}

// WithAsset specifies the stablecoin asset used for premium lookups.
// Defaults to USDT
func WithAsset(asset types.Currency) Option {
	return func(s *Server) {
		s.asset = asset
	}
}

// WithRefFiat specifies the reference fiat used for premium lookups.
// Defaults to USD
func WithRefFiat(ref types.Currency) Option {
	return func(s *Server) {
		s.ref = ref
	}
}
