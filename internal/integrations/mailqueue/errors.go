package mailqueue

import "errors"

// ErrEnqueue возвращается, когда письмо не удалось поставить в очередь
var ErrEnqueue = errors.New("mailqueue: failed to enqueue email")
