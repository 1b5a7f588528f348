package analyzer

import (
	"context"
)

// Task builders. Each is called with upgrade held, so the order of
// submissions for a directory matches the order of decisions about it.

// enqueueAdd indexes file. Pending work for the file can cancel it.
func (a *FileAnalyzer) enqueueAdd(sub *subscription, file string) {
	res := ResourceID(file)
	a.mu.Lock()
	sub.tracked[res] = file
	a.mu.Unlock()

	a.queue.QueueTask(sub.key, func(ctx context.Context) error {
		tokens, digest, ok := a.loadTokens(ctx, file)
		if err := ctx.Err(); err != nil {
			return err
		}
		a.indexer.Add(res, tokens...)
		a.remember(res, digest, ok)
		return nil
	}, res)
}

// enqueueUpdate re-reads file and replaces its tokens, unless its content
// is unchanged since it was last indexed.
func (a *FileAnalyzer) enqueueUpdate(sub *subscription, file string) {
	res := ResourceID(file)
	a.mu.Lock()
	sub.tracked[res] = file
	a.mu.Unlock()

	a.queue.QueueTask(sub.key, func(ctx context.Context) error {
		tokens, digest, ok := a.loadTokens(ctx, file)
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok && a.unchanged(res, digest) {
			a.metrics.FileUnchanged()
			return nil
		}
		a.indexer.Update(res, tokens)
		a.remember(res, digest, ok)
		return nil
	}, res)
}

// enqueueRemove cancels pending work for res and removes it. The removal
// itself carries no cancellation-key so that it always runs.
func (a *FileAnalyzer) enqueueRemove(sub *subscription, res string) {
	a.queue.CancelTasks(res)
	a.queue.QueueTask(sub.key, func(context.Context) error {
		a.indexer.Remove(res)
		a.forget(res)
		return nil
	}, "")
}

// enqueueSwitch moves the tokens of oldRes to newRes and re-reads the file
// under its new name. When the rename replaced a tracked file, the tokens
// swapped onto oldRes belong to a file that no longer exists and are
// removed.
func (a *FileAnalyzer) enqueueSwitch(sub *subscription, oldRes, newRes, newPath string, overwritten bool) {
	a.mu.Lock()
	delete(sub.tracked, oldRes)
	sub.tracked[newRes] = newPath
	a.mu.Unlock()

	a.queue.QueueTask(sub.key, func(context.Context) error {
		a.indexer.Switch(oldRes, newRes)
		if overwritten {
			a.indexer.Remove(oldRes)
		}
		a.moveFingerprint(oldRes, newRes)
		return nil
	}, "")
	a.enqueueUpdate(sub, newPath)
}
