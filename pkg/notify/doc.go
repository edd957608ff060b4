/*
Package notify delivers operator notifications over the host's mail command.

The Notifier interface is deliberately errorless: notification is a side
channel and must never abort an in-flight shutdown run. Reporter holds the
fixed message templates, one per event type, each subject stamped with the
node identifier.
*/
package notify
