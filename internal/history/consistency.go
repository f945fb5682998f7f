package history

// Consistency scores how reliable a schedule is, in [0, 1].
//
// It is the fill ratio of the active weekdays' slot windows:
// TotalHours / (ActiveDays * SlotsPerDay). A schedule with no active days
// scores 0, meaning "no data" rather than "perfectly consistent".
//
// Replacing an hour on a full weekday leaves the score unchanged; only adding
// a new hour below the cap or activating a new weekday moves it.
func Consistency(s Schedule) float64 {
	active := s.ActiveDays()
	if active == 0 {
		return 0
	}
	return float64(s.TotalHours()) / float64(active*SlotsPerDay)
}
