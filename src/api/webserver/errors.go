package webserver

import "errors"

var errInvalidInvite = errors.New("invalid invitation code")
