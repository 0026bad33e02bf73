// Package jwt signs and verifies the two token kinds the engine issues:
// session tokens bound to an ActiveUserSession, and unlock tokens mailed to
// the owner of a locked account. A token of one kind never parses as the other.
package jwt
