package eventbus

import dErrors "vigil/pkg/domainerrors"

var errBusClosed = dErrors.New(dErrors.CodeUnavailable, "event bus is closed")
