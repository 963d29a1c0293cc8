// Package irc holds the line parser and the transport.
//
// Parse turns one raw protocol line into a Line:
//
//   - PRIVMSG/NOTICE: user message, with sender, target, private flag and text
//   - three digit command: numeric reply (353 NAMES, 352 WHO, 311 WHOIS, ...)
//   - four or five upper-case letters: verb (JOIN, PART, KICK, QUIT, NICK, ...)
//   - anything else, PING included: Other
//
// Client wraps ircevent. It does no dispatching of its own: every line read
// is forwarded to Lines, and the bot decides what to do with it.
package irc
