package coord_test

import (
	"fmt"

	"github.com/matzehuels/jarflow/pkg/coord"
)

func ExampleCompare() {
	fmt.Println(coord.Compare("1.2.0", "1.1.9"))
	fmt.Println(coord.Compare("1.0-SNAPSHOT", "1.0"))
	fmt.Println(coord.Compare("1.0", "1.0.0"))
	// Output:
	// 1
	// -1
	// 0
}

func ExampleLatestOf() {
	v, ok := coord.LatestOf([]string{"1.0", "1.1", "1.0.1"})
	fmt.Println(v, ok)
	// Output: 1.1 true
}

func ExampleCoordinate_URL() {
	c := coord.MustParse("com.google.guava:guava:32.1.3-jre")
	fmt.Println(c.URL("https://repo1.maven.org/maven2/", "jar"))
	// Output: https://repo1.maven.org/maven2/com/google/guava/guava/32.1.3-jre/guava-32.1.3-jre.jar
}
