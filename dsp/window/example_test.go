package window

import "fmt"

func ExampleWeight() {
	fmt.Printf("%.2f %.2f %.2f %.2f\n",
		Weight(4, 0, 0, DefaultShape),
		Weight(4, 1, 0, DefaultShape),
		Weight(4, 2, 0, DefaultShape),
		Weight(4, 3, 0, DefaultShape))
	// Output:
	// 0.00 0.25 0.50 0.25
}

func ExampleGenerate() {
	w, err := Generate(4, 2, DefaultShape)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%.2f %.2f %.2f %.2f\n", w[0], w[1], w[2], w[3])
	// Output:
	// 0.50 0.25 0.00 0.25
}
