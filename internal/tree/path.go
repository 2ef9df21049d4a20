package tree

import "path/filepath"

// pathSeparator is the platform path separator used for the
// "root + separator" prefix invariant and for rewriting descendant paths
// during a directory rename. Entries store platform-native separators;
// backends insert paths in whatever case the OS reports, with no case
// normalization.
const pathSeparator = filepath.Separator
