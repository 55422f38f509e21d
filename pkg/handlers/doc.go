// Package handlers implements the typed task handlers the worker
// dispatches to, grouped by business domain:
//
//   - Social (post.instagram, post.facebook, post.tiktok): composes a
//     post, generating missing copy or imagery through the AI provider,
//     and hands it to the sandbox gate. Handlers never touch a platform
//     client directly.
//   - Content (content.generate): AI generation only, result returned as
//     task output.
//   - Messaging (client.remind, client.followup, client.birthday):
//     feature-flag aware transactional email to salon clients.
//   - Analytics (report.daily, report.weekly, competitor.check,
//     insights.update): read-only sweeps over the stats source.
//
// Every handler tolerates duplicate execution: the queue delivers
// at-least-once, so a retried post regenerates content, a retried
// reminder re-sends, and a retried report recomputes.
//
// External collaborators (AIProvider, ClientDirectory, StatsSource) are
// declared here as interfaces and implemented by the surrounding
// service; tests substitute mocks.
package handlers
