package slice

// ConvertToStringSlice converts an interface{} slice, as decoded from YAML,
// to a string slice. It fails if any element is not a string.
func ConvertToStringSlice(input interface{}) ([]string, bool) {
	switch v := input.(type) {
	case []string:
		return v, true
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			result[i] = s
		}
		return result, true
	default:
		return nil, false
	}
}

// Check if a string exists in a string slice
func Contains(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}

// Unique drops repeated strings, keeping the first occurrence of each.
func Unique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}

// Filter returns the items for which keep is true.
func Filter(items []string, keep func(string) bool) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if keep(item) {
			result = append(result, item)
		}
	}
	return result
}
