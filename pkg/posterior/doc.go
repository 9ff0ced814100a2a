// Package posterior turns a stream of per-frame classifier scores into
// debounced keyword detections.
//
// # Algorithm
//
// A Handler keeps, for every category, the last N raw scores (N is the
// history length) and their moving sum. Each call to Handle:
//
//  1. evicts the oldest score of every category and appends the new one,
//  2. picks the category with the largest moving sum (lowest index wins
//     ties),
//  3. fires a detection if that sum exceeds TriggerThreshold*N and the
//     suppression window of the previous detection has elapsed.
//
// The sums are never divided by N; the threshold is scaled instead so
// that no rounding is involved.
//
// The suppression clock is shared by all categories: a detection of one
// keyword silences every keyword for SuppressionMs.
//
// # Usage
//
//	h, err := posterior.New(posterior.Config{
//	    HistoryLength:    4,
//	    TriggerThreshold: 200,
//	    SuppressionMs:    1000,
//	    CategoryCount:    4,
//	})
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	top, triggered, err := h.Handle(scores, nowMs)
//
// A Handler is not safe for concurrent use.
package posterior
