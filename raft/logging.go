package raft

import "github.com/sirupsen/logrus"

// logger wraps a *logrus.Entry behind a named-event surface so call
// sites log intent ("won election") rather than format strings.
type logger struct {
	entry *logrus.Entry
}

func newLogger(id NodeID) *logger {
	return &logger{entry: logrus.WithField("node_id", string(id))}
}

func (l *logger) stateChange(old, updated Role, term uint64) {
	l.entry.WithFields(logrus.Fields{
		"old_role": old.String(),
		"new_role": updated.String(),
		"term":     term,
	}).Info("role transition")
}

func (l *logger) electionStart(term uint64) {
	l.entry.WithField("term", term).Info("starting election")
}

func (l *logger) electionWon(term uint64, votes, needed int) {
	l.entry.WithFields(logrus.Fields{"term": term, "votes": votes, "needed": needed}).Info("won election")
}

func (l *logger) electionLost(term uint64, votes, needed int) {
	l.entry.WithFields(logrus.Fields{"term": term, "votes": votes, "needed": needed}).Info("lost election")
}

func (l *logger) voteGranted(candidate NodeID, term uint64) {
	l.entry.WithFields(logrus.Fields{"candidate": string(candidate), "term": term}).Info("vote granted")
}

func (l *logger) voteDenied(candidate NodeID, term uint64, reason string) {
	l.entry.WithFields(logrus.Fields{"candidate": string(candidate), "term": term, "reason": reason}).Info("vote denied")
}

func (l *logger) heartbeatSent(term uint64, peers int) {
	l.entry.WithFields(logrus.Fields{"term": term, "peers": peers}).Debug("sent heartbeat")
}

func (l *logger) appendEntriesReceived(leader NodeID, term uint64, entries int) {
	l.entry.WithFields(logrus.Fields{"leader": string(leader), "term": term, "entries": entries}).Debug("received append entries")
}

func (l *logger) commit(index, term uint64) {
	l.entry.WithFields(logrus.Fields{"index": index, "term": term}).Info("advanced commit index")
}

func (l *logger) stepDown(oldTerm, newTerm uint64) {
	l.entry.WithFields(logrus.Fields{"old_term": oldTerm, "new_term": newTerm}).Info("stepping down")
}

func (l *logger) electionTimeout() {
	l.entry.Debug("election timer expired")
}

func (l *logger) fatal(err error) {
	l.entry.WithError(err).Error("fatal invariant violation")
}
