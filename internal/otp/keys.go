package otp

type keySet struct {
	otp     string
	attempt string
	lock    string
	request string
}

func (e *Engine) keys(purpose, email string) keySet {
	suffix := purpose + ":" + email
	return keySet{
		otp:     e.prefixed("otp:" + suffix),
		attempt: e.prefixed("otp_attempt:" + suffix),
		lock:    e.prefixed("otp_lock:" + suffix),
		request: e.prefixed("otp_request:" + suffix),
	}
}

func (e *Engine) pendingKey(email string) string {
	return e.prefixed("pending_registration:" + email)
}

func (e *Engine) prefixed(key string) string {
	if e.cfg.KeyPrefix == "" {
		return key
	}
	return e.cfg.KeyPrefix + ":" + key
}
