package qualcodec

// illumina8Boundaries and illumina8Reps implement the fixed Illumina-8
// binning scheme (spec §4.4): phred scores are bucketed into 8 bins with
// upper bounds {10,20,25,30,35,40,inf} (bin 0 covers [0,10)) and each bin's
// members are rewritten to a single representative score before modeling.
var (
	illumina8Boundaries = [7]int{10, 20, 25, 30, 35, 40}
	illumina8Reps       = [8]int{6, 15, 22, 27, 33, 37, 40, 40}
)

// mapIllumina8 rewrites a phred score (0..93) to its bin representative.
func mapIllumina8(score int) int {
	for i, bound := range illumina8Boundaries {
		if score < bound {
			return illumina8Reps[i]
		}
	}

	return illumina8Reps[len(illumina8Reps)-1]
}
