// Package parser decides which notifications are worth reading and pulls the
// transaction amount out of their text.
package parser
