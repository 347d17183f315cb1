package tracks

import "fmt"

// LinkError reports a track whose next link does not name its successor in
// series order. Series order is authoritative; the link is only diagnosed.
type LinkError struct {
	Track    *Track
	Expected string // uid of the successor in series order
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("invalid track ordering (%s -> %s): next is %q",
		e.Track.UID, e.Expected, e.Track.Next)
}

// CheckLink returns a LinkError when track.Next is not next.UID.
func CheckLink(track, next *Track) *LinkError {
	if track.Next == next.UID {
		return nil
	}
	return &LinkError{Track: track, Expected: next.UID}
}

// CheckLinks validates series.tracks[i].next == series.tracks[i+1].uid for
// every i. The final track is not checked.
func CheckLinks(ts []*Track) []*LinkError {
	var errs []*LinkError
	for i := 0; i+1 < len(ts); i++ {
		if err := CheckLink(ts[i], ts[i+1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
