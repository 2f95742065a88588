package reaper

import "errors"

var (
	// ErrProximityPass ошибка прохода уведомлений о приближении брони
	ErrProximityPass = errors.New("reaper: proximity pass failed")

	// ErrExpiryPass ошибка прохода истечения депозита
	ErrExpiryPass = errors.New("reaper: deposit expiry pass failed")
)
