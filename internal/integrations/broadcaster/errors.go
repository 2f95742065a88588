package broadcaster

import "errors"

// ErrPublish возвращается, когда брокер не принял событие
var ErrPublish = errors.New("broadcaster: failed to publish event")
