package analytics

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/philippdubach/cloudcounter/internal/timeframe"
)

// GetTopPages fetches the most viewed paths in the window from the hourly
// rollup, with previous-window change and a daily sparkline per path.
func GetTopPages(db *gorm.DB, params QueryParams) (PageList, error) {
	var rawResults []struct {
		PathID uint
		Path   string
		Title  string
		Event  bool
		Count  int64
	}

	query := `
    SELECT
        hour_stats.path_id as path_id,
        paths.path as path,
        paths.title as title,
        paths.event as event,
        SUM(hour_stats.total) as count
    FROM hour_stats
    JOIN paths ON paths.id = hour_stats.path_id
    WHERE hour_stats.hour BETWEEN ? AND ?
    GROUP BY hour_stats.path_id
    HAVING count > 0
    ORDER BY count DESC
    LIMIT ?
    `

	err := db.Raw(query,
		params.Period.From.UTC(),
		params.Period.To.UTC(),
		params.Limit+1,
	).Scan(&rawResults).Error
	if err != nil {
		return PageList{}, fmt.Errorf("error fetching top pages: %w", err)
	}

	list := PageList{Items: []PageResult{}}
	if len(rawResults) > params.Limit {
		list.More = true
		rawResults = rawResults[:params.Limit]
	}

	pathIDs := make([]uint, len(rawResults))
	for i, r := range rawResults {
		pathIDs[i] = r.PathID
	}

	previous, err := previousPathCounts(db, params.Period, pathIDs)
	if err != nil {
		return PageList{}, err
	}
	sparklines, err := pathSparklines(db, params.Period, pathIDs)
	if err != nil {
		return PageList{}, err
	}

	for _, r := range rawResults {
		list.Items = append(list.Items, PageResult{
			Path:          r.Path,
			Title:         r.Title,
			Event:         r.Event,
			Count:         r.Count,
			PercentChange: PercentChange(r.Count, previous[r.PathID]),
			Sparkline:     sparklines[r.PathID],
		})
	}

	return list, nil
}

// GetTopReferrers fetches the top first-visit referrers in the window. The
// direct sentinel never appears in ref_stats, so direct traffic is absent
// from the list rather than dominating it.
func GetTopReferrers(db *gorm.DB, params QueryParams) (MetricList, error) {
	var rawResults []struct {
		RefID uint
		Ref   string
		Count int64
	}

	query := `
    SELECT
        ref_stats.ref_id as ref_id,
        referrers.ref as ref,
        SUM(ref_stats.total) as count
    FROM ref_stats
    JOIN referrers ON referrers.id = ref_stats.ref_id
    WHERE ref_stats.hour BETWEEN ? AND ?
    GROUP BY ref_stats.ref_id
    HAVING count > 0
    ORDER BY count DESC
    LIMIT ?
    `

	err := db.Raw(query,
		params.Period.From.UTC(),
		params.Period.To.UTC(),
		params.Limit+1,
	).Scan(&rawResults).Error
	if err != nil {
		return MetricList{}, fmt.Errorf("error fetching top referrers: %w", err)
	}

	list := MetricList{Items: []MetricCountResult{}}
	if len(rawResults) > params.Limit {
		list.More = true
		rawResults = rawResults[:params.Limit]
	}

	refIDs := make([]uint, len(rawResults))
	for i, r := range rawResults {
		refIDs[i] = r.RefID
	}
	previous, err := previousDimensionCounts(db, params.Period, "ref_stats", "ref_id", refIDs)
	if err != nil {
		return MetricList{}, err
	}

	for _, r := range rawResults {
		list.Items = append(list.Items, MetricCountResult{
			Name:          r.Ref,
			Count:         r.Count,
			PercentChange: PercentChange(r.Count, previous[r.RefID]),
		})
	}

	return list, nil
}

// GetTopBrowsers fetches the top browsers among first visits in the window
// from the daily rollup.
func GetTopBrowsers(db *gorm.DB, params QueryParams) (MetricList, error) {
	return topNameVersionDimension(db, params, "browser_stats", "browser_id", "browsers")
}

// GetTopSystems fetches the top operating systems among first visits in the
// window from the daily rollup.
func GetTopSystems(db *gorm.DB, params QueryParams) (MetricList, error) {
	return topNameVersionDimension(db, params, "system_stats", "system_id", "systems")
}

func topNameVersionDimension(db *gorm.DB, params QueryParams, statTable, idColumn, dimTable string) (MetricList, error) {
	var rawResults []struct {
		DimID   uint
		Name    string
		Version string
		Count   int64
	}

	dayFrom, dayTo := dayRange(params.Period)
	query := fmt.Sprintf(`
    SELECT
        %[1]s.%[2]s as dim_id,
        %[3]s.name as name,
        %[3]s.version as version,
        SUM(%[1]s.total) as count
    FROM %[1]s
    JOIN %[3]s ON %[3]s.id = %[1]s.%[2]s
    WHERE %[1]s.day BETWEEN ? AND ?
    GROUP BY %[1]s.%[2]s
    HAVING count > 0
    ORDER BY count DESC
    LIMIT ?
    `, statTable, idColumn, dimTable)

	err := db.Raw(query, dayFrom, dayTo, params.Limit+1).Scan(&rawResults).Error
	if err != nil {
		return MetricList{}, fmt.Errorf("error fetching top %s: %w", dimTable, err)
	}

	list := MetricList{Items: []MetricCountResult{}}
	if len(rawResults) > params.Limit {
		list.More = true
		rawResults = rawResults[:params.Limit]
	}

	dimIDs := make([]uint, len(rawResults))
	for i, r := range rawResults {
		dimIDs[i] = r.DimID
	}
	previous, err := previousDimensionCounts(db, params.Period, statTable, idColumn, dimIDs)
	if err != nil {
		return MetricList{}, err
	}

	for _, r := range rawResults {
		name := r.Name
		if r.Version != "" {
			name = r.Name + " " + r.Version
		}
		list.Items = append(list.Items, MetricCountResult{
			Name:          name,
			Count:         r.Count,
			PercentChange: PercentChange(r.Count, previous[r.DimID]),
		})
	}

	return list, nil
}

// GetTopLocations fetches the top countries among first visits in the window
// from the daily rollup. Names are ISO 3166-1 alpha-2 codes; callers render
// them with ConvertCountryStats.
func GetTopLocations(db *gorm.DB, params QueryParams) (MetricList, error) {
	var rawResults []struct {
		Location string
		Count    int64
	}

	dayFrom, dayTo := dayRange(params.Period)
	query := `
    SELECT
        location as location,
        SUM(total) as count
    FROM location_stats
    WHERE day BETWEEN ? AND ?
    GROUP BY location
    HAVING count > 0
    ORDER BY count DESC
    LIMIT ?
    `

	err := db.Raw(query, dayFrom, dayTo, params.Limit+1).Scan(&rawResults).Error
	if err != nil {
		return MetricList{}, fmt.Errorf("error fetching top locations: %w", err)
	}

	list := MetricList{Items: []MetricCountResult{}}
	if len(rawResults) > params.Limit {
		list.More = true
		rawResults = rawResults[:params.Limit]
	}

	locations := make([]string, len(rawResults))
	for i, r := range rawResults {
		locations[i] = r.Location
	}
	previous, err := previousKeyedCounts(db, params.Period, "location_stats", "location", locations)
	if err != nil {
		return MetricList{}, err
	}

	for _, r := range rawResults {
		list.Items = append(list.Items, MetricCountResult{
			Name:          r.Location,
			Count:         r.Count,
			PercentChange: PercentChange(r.Count, previous[r.Location]),
		})
	}

	return list, nil
}

// GetTopSizes fetches the screen width bucket distribution among first
// visits in the window from the daily rollup.
func GetTopSizes(db *gorm.DB, params QueryParams) (MetricList, error) {
	var rawResults []struct {
		Width int
		Count int64
	}

	dayFrom, dayTo := dayRange(params.Period)
	query := `
    SELECT
        width as width,
        SUM(total) as count
    FROM size_stats
    WHERE day BETWEEN ? AND ?
    GROUP BY width
    HAVING count > 0
    ORDER BY count DESC
    LIMIT ?
    `

	err := db.Raw(query, dayFrom, dayTo, params.Limit+1).Scan(&rawResults).Error
	if err != nil {
		return MetricList{}, fmt.Errorf("error fetching top sizes: %w", err)
	}

	list := MetricList{Items: []MetricCountResult{}}
	if len(rawResults) > params.Limit {
		list.More = true
		rawResults = rawResults[:params.Limit]
	}

	widths := make([]int, len(rawResults))
	for i, r := range rawResults {
		widths[i] = r.Width
	}
	previous, err := previousWidthCounts(db, params.Period, widths)
	if err != nil {
		return MetricList{}, err
	}

	for _, r := range rawResults {
		list.Items = append(list.Items, MetricCountResult{
			Name:          strconv.Itoa(r.Width),
			Count:         r.Count,
			PercentChange: PercentChange(r.Count, previous[r.Width]),
		})
	}

	return list, nil
}

func previousPathCounts(db *gorm.DB, period timeframe.Period, pathIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(pathIDs))
	if len(pathIDs) == 0 {
		return counts, nil
	}

	previous := period.Previous()
	var rows []struct {
		PathID uint
		Count  int64
	}
	err := db.Raw(`
    SELECT path_id as path_id, SUM(total) as count
    FROM hour_stats
    WHERE hour BETWEEN ? AND ?
    AND path_id IN ?
    GROUP BY path_id
    `, previous.From.UTC(), previous.To.UTC(), pathIDs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching previous page counts: %w", err)
	}

	for _, row := range rows {
		counts[row.PathID] = row.Count
	}
	return counts, nil
}

func previousDimensionCounts(db *gorm.DB, period timeframe.Period, statTable, idColumn string, ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	previous := period.Previous()
	from, to := previous.From.UTC(), previous.To.UTC()
	timeColumn := "day"
	if statTable == "ref_stats" {
		timeColumn = "hour"
	} else {
		from, to = dayRange(previous)
	}

	var rows []struct {
		DimID uint
		Count int64
	}
	query := fmt.Sprintf(`
    SELECT %[2]s as dim_id, SUM(total) as count
    FROM %[1]s
    WHERE %[3]s BETWEEN ? AND ?
    AND %[2]s IN ?
    GROUP BY %[2]s
    `, statTable, idColumn, timeColumn)
	err := db.Raw(query, from, to, ids).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching previous %s counts: %w", statTable, err)
	}

	for _, row := range rows {
		counts[row.DimID] = row.Count
	}
	return counts, nil
}

func previousKeyedCounts(db *gorm.DB, period timeframe.Period, statTable, keyColumn string, keys []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return counts, nil
	}

	from, to := dayRange(period.Previous())
	var rows []struct {
		Key   string
		Count int64
	}
	query := fmt.Sprintf(`
    SELECT %[2]s as key, SUM(total) as count
    FROM %[1]s
    WHERE day BETWEEN ? AND ?
    AND %[2]s IN ?
    GROUP BY %[2]s
    `, statTable, keyColumn)
	err := db.Raw(query, from, to, keys).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching previous %s counts: %w", statTable, err)
	}

	for _, row := range rows {
		counts[row.Key] = row.Count
	}
	return counts, nil
}

func previousWidthCounts(db *gorm.DB, period timeframe.Period, widths []int) (map[int]int64, error) {
	counts := make(map[int]int64, len(widths))
	if len(widths) == 0 {
		return counts, nil
	}

	from, to := dayRange(period.Previous())
	var rows []struct {
		Width int
		Count int64
	}
	err := db.Raw(`
    SELECT width as width, SUM(total) as count
    FROM size_stats
    WHERE day BETWEEN ? AND ?
    AND width IN ?
    GROUP BY width
    `, from, to, widths).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching previous size counts: %w", err)
	}

	for _, row := range rows {
		counts[row.Width] = row.Count
	}
	return counts, nil
}

// pathSparklines builds a daily zero-filled mini series per path for the
// current window, regardless of the period's own bucket size.
func pathSparklines(db *gorm.DB, period timeframe.Period, pathIDs []uint) (map[uint][]timeframe.DateStat, error) {
	sparklines := make(map[uint][]timeframe.DateStat, len(pathIDs))
	if len(pathIDs) == 0 {
		return sparklines, nil
	}

	daily := timeframe.Period{From: period.From, To: period.To, Bucket: timeframe.BucketDay}
	var rows []struct {
		PathID uint
		Date   string
		Count  int
	}
	query := fmt.Sprintf(`
    SELECT path_id as path_id, %s as date, SUM(total) as count
    FROM hour_stats
    WHERE hour BETWEEN ? AND ?
    AND path_id IN ?
    GROUP BY path_id, date
    `, daily.GroupExpression("hour"))
	err := db.Raw(query, period.From.UTC(), period.To.UTC(), pathIDs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching page sparklines: %w", err)
	}

	grouped := make(map[uint][]timeframe.DateStat, len(pathIDs))
	for _, row := range rows {
		grouped[row.PathID] = append(grouped[row.PathID], timeframe.DateStat{Date: row.Date, Count: row.Count})
	}
	for _, pathID := range pathIDs {
		sparklines[pathID] = daily.BuildSeries(grouped[pathID])
	}
	return sparklines, nil
}
