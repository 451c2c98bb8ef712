/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package diff

// element is an index or constraint reduced to its name and structure
type element struct {
	name string
	key  string
}

// match pairs desired and actual elements with the same structure. Within
// one structure, equal names pair first; the rest pair in declaration order.
// It returns index pairs {desired, actual} and the unmatched indexes.
func match(desired, actual []element) (pairs [][2]int, added, removed []int) {
	usedDesired := make([]bool, len(desired))
	usedActual := make([]bool, len(actual))

	for i, d := range desired {
		for j, a := range actual {
			if !usedActual[j] && d.key == a.key && d.name == a.name {
				pairs = append(pairs, [2]int{i, j})
				usedDesired[i], usedActual[j] = true, true
				break
			}
		}
	}
	for i, d := range desired {
		if usedDesired[i] {
			continue
		}
		for j, a := range actual {
			if !usedActual[j] && d.key == a.key {
				pairs = append(pairs, [2]int{i, j})
				usedDesired[i], usedActual[j] = true, true
				break
			}
		}
	}

	for i := range desired {
		if !usedDesired[i] {
			added = append(added, i)
		}
	}
	for j := range actual {
		if !usedActual[j] {
			removed = append(removed, j)
		}
	}
	return pairs, added, removed
}
