// Package scorer grades prospective social posts against a fixed rubric:
// caption length, platform-appropriate hashtag count, attached media,
// call-to-action, emoji density, price mention, and posting time. The
// total is out of 100 and maps to letter grades A through F with a
// textual recommendation.
//
// Analyze is side-effect free and deterministic for a fixed evaluation
// time, which makes it equally usable for grading simulated posts and for
// driving the human approval workflow.
package scorer
