package auth

import "time"

// SetClock replaces the JWT service clock in tests.
func (s *JWTService) SetClock(now func() time.Time) {
	s.now = now
}
