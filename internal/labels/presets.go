package labels

// ScanNet benchmark class tables (NYU40 ids).
var (
	scanNetInstanceNames = []string{
		"cabinet", "bed", "chair", "sofa", "table", "door", "window", "bookshelf", "picture",
		"counter", "desk", "curtain", "refrigerator", "shower curtain", "toilet", "sink",
		"bathtub", "otherfurniture",
	}
	scanNetInstanceIDs = []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 14, 16, 24, 28, 33, 34, 36, 39}

	scanNetSemanticNames = append([]string{"wall", "floor"}, scanNetInstanceNames...)
	scanNetSemanticIDs   = append([]int{1, 2}, scanNetInstanceIDs...)

	sceneTypeNames = []string{
		"apartment", "bathroom", "bedroom / hotel", "bookstore / library", "conference room",
		"copy/mail room", "hallway", "kitchen", "laundry room", "living_room / lounge", "office",
		"storage / basement / garage", "misc.",
	}
	sceneTypeIDs = []int{1, 2, 3, 4, 8, 9, 13, 14, 15, 16, 18, 20, 21}
)

// ScanNetInstance returns the 18-class instance segmentation registry.
func ScanNetInstance() *Registry {
	return MustRegistry(scanNetInstanceNames, scanNetInstanceIDs)
}

// ScanNetSemantic returns the 20-class semantic labeling registry.
func ScanNetSemantic() *Registry {
	return MustRegistry(scanNetSemanticNames, scanNetSemanticIDs)
}

// ScanNetSceneTypes returns the 13-class scene type registry.
func ScanNetSceneTypes() *Registry {
	return MustRegistry(sceneTypeNames, sceneTypeIDs)
}
