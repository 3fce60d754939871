package connection

// ReconcileConnected derives the trustworthy connectivity flag from the
// locally tracked flag and the transport's own status. Neither source alone
// is reliable: the transport reports connected as soon as the dial succeeds,
// before the server has acknowledged the session, and the local flag goes
// stale when the transport dies without a disconnect frame.
//
// While a connect attempt is in flight the local flag wins (the transport's
// answer is meaningless mid-handshake). Otherwise the transport wins in both
// drift directions. drifted reports whether the local flag needed correcting.
func ReconcileConnected(local, transport, connecting bool) (corrected, drifted bool) {
	if connecting {
		return local, false
	}
	return transport, local != transport
}
