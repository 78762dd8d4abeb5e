// Package pkgerror classifies the failures a pipeline step can hit.
//
// Components wrap their errors with a Kind so the step runner and the
// workflow can tell a skipped input from a broken file or a remote outage
// without matching on message text.
package pkgerror
