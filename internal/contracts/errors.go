package contracts

import "errors"

var (
	// ErrNoData means no instrument in the universe produced any history
	ErrNoData = errors.New("no price data")
	// ErrUnknownUniverse is returned for an unregistered universe id
	ErrUnknownUniverse = errors.New("unknown universe")
	// ErrUnknownMethod is returned for an unsupported ranking method
	ErrUnknownMethod = errors.New("unknown ranking method")
)
