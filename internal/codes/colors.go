package codes

// Bucket is one of four ordered share ranges.
type Bucket int

const (
	BucketUndefined Bucket = -1
	BucketQuarter   Bucket = 0 // share <= 25
	BucketHalf      Bucket = 1 // share <= 50
	BucketThreeQtr  Bucket = 2 // share <= 75
	BucketMajority  Bucket = 3 // share > 75
)

// DefaultColor is used for every (category, bucket) pair not in the grid,
// including pairs where either side is undefined.
const DefaultColor = "#cccccc"

type gridKey struct {
	category Category
	bucket   Bucket
}

// Shades run light to dark as the share grows: reds for China, yellows for
// the EU, blues for the US.
var colorGrid = map[gridKey]string{
	{CategoryChina, BucketQuarter}:  "#ffcccc",
	{CategoryChina, BucketHalf}:     "#ff9999",
	{CategoryChina, BucketThreeQtr}: "#ff6666",
	{CategoryChina, BucketMajority}: "#cc0000",

	{CategoryEU, BucketQuarter}:  "#ffffcc",
	{CategoryEU, BucketHalf}:     "#ffff99",
	{CategoryEU, BucketThreeQtr}: "#ffff66",
	{CategoryEU, BucketMajority}: "#cccc00",

	{CategoryUS, BucketQuarter}:  "#ccccff",
	{CategoryUS, BucketHalf}:     "#9999ff",
	{CategoryUS, BucketThreeQtr}: "#6666ff",
	{CategoryUS, BucketMajority}: "#0000cc",
}

// Color returns the color key of a category and bucket, or DefaultColor.
func Color(category Category, bucket Bucket) string {
	if color, ok := colorGrid[gridKey{category, bucket}]; ok {
		return color
	}
	return DefaultColor
}
